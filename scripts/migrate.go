package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"monobase/internal/config"
	"monobase/internal/ice"
	"monobase/pkg/database"
	"monobase/pkg/logger"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
)

// migrate prepares the database for the communications service and checks
// the ICE configuration that the server would load.
//
//	go run ./scripts -check-ice   only validate ICE_SERVERS
func main() {
	checkOnly := flag.Bool("check-ice", false, "only validate ICE_SERVERS and print the parsed list")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "Warning: No .env file found, using environment variables")
	}
	logger.Init()

	err := run(*checkOnly)
	logger.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(checkOnly bool) (err error) {
	cfg := config.Load()

	servers, err := cfg.ICEServers()
	if err != nil {
		return fmt.Errorf("ICE configuration rejected: %w", err)
	}
	if err := ice.CheckPeerConfiguration(servers); err != nil {
		return fmt.Errorf("ICE configuration rejected: %w", err)
	}
	if err := printServers(servers); err != nil {
		return err
	}
	if checkOnly {
		return nil
	}

	if err := database.InitMongoDB(cfg.Database.MongoDB); err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer func() {
		if dErr := database.Disconnect(); dErr != nil && err == nil {
			err = fmt.Errorf("failed to disconnect MongoDB: %w", dErr)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := database.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("index migration failed: %w", err)
	}
	if err := backfillVersions(ctx); err != nil {
		return fmt.Errorf("version backfill failed: %w", err)
	}

	logger.Info("Migration completed")
	return nil
}

// backfillVersions gives calls written before optimistic locking a version so
// the repository's version filter matches them.
func backfillVersions(ctx context.Context) error {
	calls := database.GetDatabase().Collection(database.VideoCallsCollection)
	result, err := calls.UpdateMany(ctx,
		bson.M{"version": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"version": 0}},
	)
	if err != nil {
		return err
	}
	logger.WithField("modified", result.ModifiedCount).Info("Backfilled call versions")
	return nil
}

func printServers(servers []ice.Server) error {
	views := make([]map[string]interface{}, 0, len(servers))
	for _, s := range servers {
		views = append(views, s.Redacted())
	}
	out, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ICE servers: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
