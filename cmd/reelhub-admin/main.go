// Package main is the entry point for the Reelhub admin CLI.
// It provides administrative commands for inspecting users and running data repairs.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	rediscache "github.com/prn-tf/reelhub/internal/cache/redis"
	"github.com/prn-tf/reelhub/internal/config"
	"github.com/prn-tf/reelhub/internal/lock"
	"github.com/prn-tf/reelhub/internal/repository"
	"github.com/prn-tf/reelhub/internal/repository/store"
	"github.com/prn-tf/reelhub/internal/service"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(zerolog.WarnLevel)

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("Reelhub Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "user":
		err = userCommand(os.Args[2:])

	case "bookmarks":
		err = bookmarksCommand(os.Args[2:])

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// user
// =============================================================================

func userCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: reelhub-admin user <list|show> [arguments]")
	}
	switch args[0] {
	case "list":
		return userList(args[1:])
	case "show":
		return userShow(args[1:])
	default:
		return fmt.Errorf("unknown user command: %s", args[0])
	}
}

func userShow(args []string) error {
	fs := flag.NewFlagSet("user show", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: reelhub-admin user show [--config path] <username>")
	}

	ctx := context.Background()
	st, _, err := openStore(ctx, *configPath)
	if err != nil {
		return err
	}
	defer st.Close()

	users := service.NewUserService(st.Repos.User, st.Repos.Video, nil, service.UserServiceConfig{}, log.Logger)
	u, err := users.GetByUsername(ctx, fs.Arg(0))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", u.ID)
	fmt.Fprintf(tw, "Username\t%s\n", u.Username)
	fmt.Fprintf(tw, "Email\t%s\n", u.Email)
	fmt.Fprintf(tw, "Followers\t%d\n", u.FollowersCount())
	fmt.Fprintf(tw, "Following\t%d\n", u.FollowingCount())
	fmt.Fprintf(tw, "Legacy bookmarks\t%d\n", len(u.LegacyBookmarks))
	fmt.Fprintf(tw, "Created\t%s\n", u.CreatedAt.Format(time.RFC3339))
	return tw.Flush()
}

func userList(args []string) error {
	fs := flag.NewFlagSet("user list", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	limit := fs.Int("limit", 50, "maximum users to print")
	offset := fs.Int("offset", 0, "users to skip")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	st, _, err := openStore(ctx, *configPath)
	if err != nil {
		return err
	}
	defer st.Close()

	users := service.NewUserService(st.Repos.User, st.Repos.Video, nil, service.UserServiceConfig{}, log.Logger)
	result, err := users.List(ctx, repository.ListOptions{Limit: *limit, Offset: *offset})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tFOLLOWERS\tFOLLOWING\tCREATED")
	for _, u := range result.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			u.ID, u.Username, u.Email, u.FollowersCount(), u.FollowingCount(), u.CreatedAt.Format(time.RFC3339))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d of %d users\n", len(result.Items), result.Total)
	return nil
}

// =============================================================================
// bookmarks
// =============================================================================

func bookmarksCommand(args []string) error {
	if len(args) == 0 || args[0] != "backfill" {
		return fmt.Errorf("usage: reelhub-admin bookmarks backfill [--dry-run] [--config path]")
	}

	fs := flag.NewFlagSet("bookmarks backfill", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	dryRun := fs.Bool("dry-run", false, "report what would be migrated without writing")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	ctx := context.Background()
	st, cfg, err := openStore(ctx, *configPath)
	if err != nil {
		return err
	}
	defer st.Close()

	// Share the server's lock backend so a backfill never overlaps another run.
	var locker lock.Locker = lock.NewNoOpLocker()
	if cfg.Lock.Backend == "redis" {
		client, err := rediscache.NewClient(ctx, cfg.Redis, log.Logger)
		if err != nil {
			return err
		}
		defer client.Close()
		locker = lock.NewRedisLocker(client)
	}

	bookmarks := service.NewBookmarkService(st.Repos.User, st.Repos.Video, locker, lock.Options{
		TTL:        10 * time.Minute,
		MaxRetries: 1,
		RetryDelay: cfg.Lock.RetryDelay,
	}, log.Logger)

	report, err := bookmarks.BackfillLegacyBookmarks(ctx, *dryRun)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func openStore(ctx context.Context, configPath string) (*repository.Store, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(ctx, cfg.Database, log.Logger)
	if err != nil {
		return nil, nil, err
	}
	return st, cfg, nil
}

func printUsage() {
	fmt.Println(`Reelhub Admin CLI

Usage:
  reelhub-admin <command> [arguments]

Commands:
  user list            List accounts (--limit, --offset)
  user show <username> Show one account
  bookmarks backfill   Move legacy per-user bookmark lists onto videos (--dry-run)
  version              Print version information
  help                 Show this help message

All commands accept --config to point at a config file.

Examples:
  reelhub-admin user list --limit 20
  reelhub-admin user show alice
  reelhub-admin bookmarks backfill --dry-run`)
}
