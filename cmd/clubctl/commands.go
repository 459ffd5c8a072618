package main

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/iliyamo/netplay-club/internal/board"
	"github.com/iliyamo/netplay-club/internal/config"
	"github.com/iliyamo/netplay-club/internal/database"
	"github.com/iliyamo/netplay-club/internal/docstore"
	"github.com/iliyamo/netplay-club/internal/logger"
	"github.com/iliyamo/netplay-club/internal/model"
	"github.com/iliyamo/netplay-club/internal/queue"
	"github.com/iliyamo/netplay-club/internal/service"
	"github.com/iliyamo/netplay-club/internal/utils"
)

func newLogger(c *cli.Context) *slog.Logger {
	return logger.New(c.String("log-level"), c.String("log-format"))
}

func dbFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "db-user", EnvVars: []string{"DB_USER"}, Required: true},
		&cli.StringFlag{Name: "db-pass", EnvVars: []string{"DB_PASS"}},
		&cli.StringFlag{Name: "db-host", Value: "127.0.0.1", EnvVars: []string{"DB_HOST"}},
		&cli.StringFlag{Name: "db-port", Value: "3306", EnvVars: []string{"DB_PORT"}},
		&cli.StringFlag{Name: "db-name", EnvVars: []string{"DB_NAME"}, Required: true},
	}
}

// hash-passcode prints the bcrypt hash for ADMIN_PASSCODE_HASH. The
// passcode comes from the first argument or, when absent, from stdin.
func hashPasscodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "hash-passcode",
		Usage:     "print the bcrypt hash of an admin passcode",
		ArgsUsage: "[passcode]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "cost", Value: 12, EnvVars: []string{"BCRYPT_COST"}},
		},
		Action: func(c *cli.Context) error {
			plain := c.Args().First()
			if plain == "" {
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read passcode: %w", err)
				}
				plain = strings.TrimRight(line, "\r\n")
			}
			hash, err := utils.HashPasscode(plain, c.Int("cost"))
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, hash)
			return nil
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "create the MySQL tables",
		Flags: dbFlags(),
		Action: func(c *cli.Context) error {
			log := newLogger(c)
			db, err := database.Open(c.Context, c.String("db-user"), c.String("db-pass"),
				c.String("db-host"), c.String("db-port"), c.String("db-name"))
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(c.Context, db); err != nil {
				return err
			}
			log.Info("schema up to date", slog.String("database", c.String("db-name")))
			return nil
		},
	}
}

func consumeEventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "consume-events",
		Usage: "journal club events from RabbitMQ until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "amqp-url", Value: config.RabbitURL()},
			&cli.StringFlag{Name: "journal", Value: "logs/club-events.log", EnvVars: []string{"EVENT_JOURNAL"}},
		},
		Action: func(c *cli.Context) error {
			log := newLogger(c)
			log.Info("event consumer starting", slog.String("queue", queue.ClubEventsQueue), slog.String("journal", c.String("journal")))
			err := queue.Consume(c.Context, c.String("amqp-url"), queue.Journal{Path: c.String("journal")}, log)
			if errors.Is(err, c.Context.Err()) {
				return nil
			}
			return err
		},
	}
}

// reset-board empties every court and waiting group and zeroes play
// counts, the same as the admin reset button.
func resetBoardCommand() *cli.Command {
	return &cli.Command{
		Name:  "reset-board",
		Usage: "clear all courts and waiting groups and zero play counts",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Usage: "confirm the reset"},
			&cli.IntFlag{Name: "courts", Value: board.DefaultCourtCount, EnvVars: []string{"COURT_COUNT"}},
			&cli.StringFlag{Name: "namespace", Value: "netplay:", EnvVars: []string{"STORE_NAMESPACE"}},
			&cli.IntFlag{Name: "retries", Value: 25, EnvVars: []string{"STORE_TX_RETRIES"}},
		},
		Action: func(c *cli.Context) error {
			log := newLogger(c)
			rdb, err := config.NewRedisClient()
			if err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			defer rdb.Close()

			store := docstore.NewRedis(rdb, c.String("namespace"), docstore.WithMaxRetries(c.Int("retries")))
			ctrl := board.NewController(store, service.Discard{},
				board.WithCourtCount(c.Int("courts")),
				board.WithLogger(log),
			)
			operator := model.Caller{Name: "clubctl", PIN: "-", Admin: true}
			if err := ctrl.GlobalReset(c.Context, operator, c.Bool("yes")); err != nil {
				if errors.Is(err, board.ErrConfirmationRequired) {
					return cli.Exit("refusing to reset without --yes", 2)
				}
				return err
			}
			fmt.Fprintln(c.App.Writer, "board reset")
			return nil
		},
	}
}
