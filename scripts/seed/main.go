// Seed fills the activity table with sample events for one user.
// Run from project root: go run ./scripts/seed -email you@example.com
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"trademinutes-gateway/internal/database"
	"trademinutes-gateway/internal/models"
	"trademinutes-gateway/internal/repository"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	email := flag.String("email", "test-user@example.com", "user the events belong to")
	total := flag.Int("n", 50, "number of events")
	flag.Parse()

	_ = godotenv.Load()

	ctx := context.Background()
	db := database.DB(ctx)
	if db == nil {
		fmt.Fprintln(os.Stderr, "DATABASE_URL not set or DB connection failed")
		os.Exit(1)
	}
	if err := database.MigrateOrCreateSchema(ctx, db); err != nil {
		fmt.Fprintln(os.Stderr, "Schema failed:", err)
		os.Exit(1)
	}

	kinds := []string{models.EventTaskCreated, models.EventBookingRequested, models.EventConversationStarted}
	store := repository.NewActivitiesWithDB(db)
	start := time.Now()
	for i := 0; i < *total; i++ {
		ev := models.Event{
			ID:         uuid.New().String(),
			Kind:       kinds[i%len(kinds)],
			UserEmail:  *email,
			TaskID:     fmt.Sprintf("seed-task-%d", i/len(kinds)),
			Reference:  uuid.New().String(),
			OccurredAt: start.Add(-time.Duration(*total-i) * time.Minute),
		}
		if err := store.Insert(ctx, ev); err != nil {
			fmt.Fprintln(os.Stderr, "Insert failed:", err)
			os.Exit(1)
		}
		fmt.Printf("\rInserted %d / %d", i+1, *total)
	}
	fmt.Printf("\nDone in %s\n", time.Since(start).Round(time.Millisecond))
}
