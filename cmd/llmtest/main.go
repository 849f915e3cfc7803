// Command llmtest exercises the configured completion providers against a
// sample conversation. Useful when rotating API keys or trying a new model.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/lmercier/hosting-ai-platform/internal/reply"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	system := "You are the virtual assistant of Villa Azur, a seaside rental. Keep replies brief and warm."
	turns := []reply.Turn{
		{Role: reply.RoleUser, Content: "Hi! Is there parking at the villa?"},
		{Role: reply.RoleAssistant, Content: "Yes, Villa Azur has free private parking for one car. Anything else I can help with?"},
		{Role: reply.RoleUser, Content: "Great. And is breakfast included?"},
	}

	fmt.Println("Completion Provider Test")
	fmt.Println("========================")

	openaiKey := os.Getenv("OPENAI_API_KEY")
	if openaiKey != "" {
		fmt.Println("\n[1] Testing OpenAI...")
		client, err := reply.NewOpenAIClient(openaiKey, os.Getenv("OPENAI_ORG_ID"), os.Getenv("OPENAI_MODEL"))
		if err != nil {
			fmt.Printf("    failed to create client: %v\n", err)
		} else {
			runProvider(ctx, client, system, turns)
		}
	} else {
		fmt.Println("\n[1] Skipping OpenAI (OPENAI_API_KEY not set)")
	}

	geminiKey := os.Getenv("GEMINI_API_KEY")
	if geminiKey != "" {
		fmt.Println("\n[2] Testing Gemini...")
		client, err := reply.NewGeminiClient(ctx, geminiKey, os.Getenv("GEMINI_MODEL"))
		if err != nil {
			fmt.Printf("    failed to create client: %v\n", err)
		} else {
			defer client.Close()
			runProvider(ctx, client, system, turns)
		}
	} else {
		fmt.Println("\n[2] Skipping Gemini (GEMINI_API_KEY not set)")
	}
}

func runProvider(ctx context.Context, client reply.CompletionClient, system string, turns []reply.Turn) {
	start := time.Now()
	text, err := client.Complete(ctx, system, turns)
	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		fmt.Printf("    error after %v: %v\n", elapsed, err)
		return
	}
	validated, err := reply.ValidateResponse(text)
	if err != nil {
		fmt.Printf("    response rejected by validation (%v): %v\n", elapsed, err)
		fmt.Printf("    raw: %s\n", text)
		return
	}
	fmt.Printf("    ok (%v):\n    %s\n", elapsed, validated)
}
