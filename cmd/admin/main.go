package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"zawaj/backend/internal/auth"
	"zawaj/backend/internal/chathub"
	"zawaj/backend/internal/config"
	"zawaj/backend/internal/localization"
	"zawaj/backend/internal/logger"
	"zawaj/backend/internal/models"
	"zawaj/backend/internal/moderation"
	"zawaj/backend/internal/notification"
	"zawaj/backend/internal/storage"
	"zawaj/backend/internal/validation"
	"zawaj/backend/internal/workflow"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// cliActor is recorded as the actor of every audited CLI action.
var cliActor = auth.Session{UserID: "admin-cli", Role: models.RoleAdmin}

const usage = `Usage: admin <command> [args]

Commands:
  promote <user_id|email> <user|moderator|admin>
  suspend <user_id|email> [duration_in_hours]
  unsuspend <user_id|email>
  sweep`

type services struct {
	store         *storage.Service
	moderation    *moderation.Service
	requests      *workflow.Service
	notifications *notification.Service
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Read()
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Env)

	ctx := context.Background()
	svc := setup(ctx, cfg)
	defer svc.notifications.Wait()

	if err := run(ctx, svc, os.Args[1], os.Args[2:]); err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}
}

func setup(ctx context.Context, cfg *config.Config) *services {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), storage.GormConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}

	// With Redis the suspension cache is kept in sync and notifications reach
	// users connected to any server instance.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, continuing without it")
			rdb = nil
		}
	}
	store := storage.NewStorageService(db, rdb)

	localizer, err := localization.Default()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load translations")
	}
	notifications := notification.NewService(store, localizer, cfg.DefaultLanguage)

	var deliverer moderation.Deliverer
	if rdb != nil {
		hub := chathub.NewManagerService(store)
		notifications.AddPusher(hub)
		deliverer = hub
	}

	policy := cfg.RequestPolicy()
	validator := validation.New(policy)
	return &services{
		store:         store,
		moderation:    moderation.NewService(store, notifications, deliverer, validator),
		requests:      workflow.NewService(store, notifications, validator, policy),
		notifications: notifications,
	}
}

func run(ctx context.Context, svc *services, command string, args []string) error {
	switch command {
	case "promote":
		if len(args) != 2 {
			return fmt.Errorf("usage: admin promote <user_id|email> <user|moderator|admin>")
		}
		user, err := findUser(ctx, svc.store, args[0])
		if err != nil {
			return err
		}
		if err := svc.moderation.SetRole(ctx, cliActor, user.ID, models.Role(args[1])); err != nil {
			return err
		}
		fmt.Printf("User %s is now %s.\n", user.Email, args[1])

	case "suspend":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("usage: admin suspend <user_id|email> [duration_in_hours]")
		}
		user, err := findUser(ctx, svc.store, args[0])
		if err != nil {
			return err
		}
		var hours int
		if len(args) == 2 {
			hours, err = strconv.Atoi(args[1])
			if err != nil || hours <= 0 {
				return fmt.Errorf("invalid duration %q, please provide a positive integer", args[1])
			}
		}
		res, err := svc.moderation.PerformAction(ctx, cliActor, moderation.ActionInput{
			ResourceType:  moderation.ResourceUsers,
			ResourceID:    user.ID,
			Action:        moderation.ActionSuspendUser,
			Notes:         "suspended from the admin CLI",
			DurationHours: hours,
		})
		if err != nil {
			return err
		}
		fmt.Printf("User %s is suspended until %s.\n", user.Email, res.SuspendedUntil.Format(time.RFC3339))

	case "unsuspend":
		if len(args) != 1 {
			return fmt.Errorf("usage: admin unsuspend <user_id|email>")
		}
		user, err := findUser(ctx, svc.store, args[0])
		if err != nil {
			return err
		}
		if err := svc.moderation.Unsuspend(ctx, cliActor, user.ID); err != nil {
			return err
		}
		fmt.Printf("User %s has been unsuspended.\n", user.Email)

	case "sweep":
		n, err := svc.requests.ExpireStale(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
		fmt.Printf("Expired %d pending requests.\n", n)

	default:
		return fmt.Errorf("unknown command %q\n\n%s", command, usage)
	}
	return nil
}

func findUser(ctx context.Context, store storage.Storage, ref string) (*models.User, error) {
	if strings.Contains(ref, "@") {
		return store.GetUserByEmail(ctx, strings.ToLower(ref))
	}
	return store.GetUser(ctx, ref)
}
