// Command seedpool provisions the finite ticket credential pool. It
// either generates fresh credentials or loads pre-printed ones from a
// CSV file (ticketId,ticketSecret per row), and writes the generated
// set to stdout so it can be handed to the print shop.
package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"workshop-tickets/internal/config"
	"workshop-tickets/internal/models"
	"workshop-tickets/internal/pool"
	"workshop-tickets/internal/utils"
)

func main() {
	count := flag.Int("count", 0, "number of credentials to generate")
	fromCSV := flag.String("csv", "", "CSV file of ticketId,ticketSecret pairs to load instead of generating")
	flag.Parse()

	if *count <= 0 && *fromCSV == "" {
		log.Fatal("either -count or -csv is required")
	}

	_ = godotenv.Load()
	cfg := config.Load()
	if cfg.Database.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN not set")
	}

	sqldb, err := sql.Open("postgres", cfg.Database.PostgresDSN)
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())
	defer bunDB.Close()

	var creds []models.TicketCredential
	if *fromCSV != "" {
		creds, err = loadCSV(*fromCSV)
		if err != nil {
			log.Fatalf("load %s: %v", *fromCSV, err)
		}
	} else {
		creds = generate(*count)
	}

	ctx := context.Background()
	p := pool.New(bunDB)
	if err := p.Seed(ctx, creds); err != nil {
		log.Fatalf("seed pool: %v", err)
	}

	size, err := p.Size(ctx)
	if err != nil {
		log.Fatalf("count pool: %v", err)
	}
	fmt.Fprintf(os.Stderr, "seeded %d credentials, pool now holds %d\n", len(creds), size)

	if *fromCSV == "" {
		writer := csv.NewWriter(os.Stdout)
		for _, cred := range creds {
			writer.Write([]string{cred.TicketID, cred.TicketSecret})
		}
		writer.Flush()
	}
}

func generate(count int) []models.TicketCredential {
	creds := make([]models.TicketCredential, 0, count)
	seen := make(map[string]bool, count)
	for len(creds) < count {
		id := utils.GenerateTicketID()
		if seen[id] {
			continue
		}
		seen[id] = true
		creds = append(creds, models.TicketCredential{
			ID:           uuid.New().String(),
			TicketID:     id,
			TicketSecret: utils.GenerateTicketSecret(),
		})
	}
	return creds
}

func loadCSV(path string) ([]models.TicketCredential, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	var creds []models.TicketCredential
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("row %d: expected ticketId,ticketSecret", len(creds)+1)
		}
		creds = append(creds, models.TicketCredential{
			ID:           uuid.New().String(),
			TicketID:     strings.TrimSpace(record[0]),
			TicketSecret: strings.TrimSpace(record[1]),
		})
	}
	return creds, nil
}
