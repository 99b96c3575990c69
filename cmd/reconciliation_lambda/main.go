package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"
	"github.com/skyvale/cloudpoints/pkg/directory"
	"github.com/skyvale/cloudpoints/pkg/models"
)

var dir directory.Directory
var operatorAccountID string

func init() {
	// Load environment variables for local testing.
	godotenv.Load()

	token := os.Getenv("DISCORD_BOT_TOKEN")
	if token == "" {
		log.Fatal("DISCORD_BOT_TOKEN environment variable not set")
	}
	dir = directory.NewDiscordClient(token, 15*time.Second)

	operatorAccountID = os.Getenv("OPERATOR_ACCOUNT_ID")
	if operatorAccountID == "" {
		log.Fatal("OPERATOR_ACCOUNT_ID environment variable not set")
	}
}

// HandleRequest is triggered by the reconciliation SQS queue. Each message is
// an ambiguous delivery: a purchase whose panel command may or may not have
// executed. The held spend is never released automatically; an operator is
// notified to check the server console and settle it by hand.
func HandleRequest(ctx context.Context, event events.SQSEvent) error {
	log.Printf("Processing %d ambiguous deliveries...", len(event.Records))

	for _, record := range event.Records {
		var delivery models.AmbiguousDelivery
		if err := json.Unmarshal([]byte(record.Body), &delivery); err != nil {
			log.Printf("ERROR: failed to unmarshal message %s: %v", record.MessageId, err)
			// Malformed messages would loop forever; drop them.
			continue
		}

		notice := fmt.Sprintf(
			"⚠️ Unconfirmed delivery needs review\nPurchase: %s\nUser: %s\nItem: %s (%s) for %d points\nCommand: `%s`\nAt: %s\nCheck the server console and refund manually if the command never ran.",
			delivery.PurchaseID,
			delivery.AccountID,
			delivery.ItemName,
			delivery.ItemID,
			delivery.Price,
			delivery.Command,
			delivery.OccurredAt.Format(time.RFC3339),
		)

		if err := dir.SendDirectMessage(ctx, operatorAccountID, notice); err != nil {
			log.Printf("ERROR: failed to notify operator about purchase %s: %v", delivery.PurchaseID, err)
			// Returning the error makes SQS redeliver the whole batch.
			return err
		}
		log.Printf("Notified operator about purchase %s", delivery.PurchaseID)
	}

	log.Println("Reconciliation batch finished.")
	return nil
}

func main() {
	lambda.Start(HandleRequest)
}
