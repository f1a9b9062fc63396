// walletctl is the SwiftWallet command line client. It keeps a local copy of
// the account in an embedded store so balances, history and beneficiaries
// stay readable when the API is unreachable.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli"

	"github.com/swift-wallet/swiftwallet-go/internal/api"
	"github.com/swift-wallet/swiftwallet-go/internal/cache"
	"github.com/swift-wallet/swiftwallet-go/internal/config"
	"github.com/swift-wallet/swiftwallet-go/internal/gateway"
	"github.com/swift-wallet/swiftwallet-go/internal/localstore"
	"github.com/swift-wallet/swiftwallet-go/internal/logging"
	"github.com/swift-wallet/swiftwallet-go/internal/middleware"
	"github.com/swift-wallet/swiftwallet-go/internal/secure"
	"github.com/swift-wallet/swiftwallet-go/internal/session"
	"github.com/swift-wallet/swiftwallet-go/internal/wallet"
)

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "dev"

// application holds the wired stores for one command invocation.
type application struct {
	cfg      config.Config
	logger   *slog.Logger
	db       localstore.Store
	deviceID string
	session  *session.Store
	wallet   *wallet.Store
}

// logNavigator stands in for a UI router: route changes are only logged.
type logNavigator struct {
	logger *slog.Logger
}

func (n *logNavigator) Navigate(route string) {
	n.logger.Info("navigate", "route", route)
}

func openStore(ctx context.Context, cfg config.Config) (localstore.Store, error) {
	switch cfg.StoreBackend {
	case "memory":
		return localstore.NewMemory(), nil
	case "postgres":
		return localstore.OpenPostgres(ctx, cfg.DatabaseURL)
	default:
		return localstore.OpenLevelDB(cfg.StorePath())
	}
}

func openCache(ctx context.Context, cfg config.Config, db localstore.Store) (cache.Cache, error) {
	switch cfg.CacheBackend {
	case "memory":
		return cache.NewMemory(cfg.CacheTTL), nil
	case "redis":
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return cache.NewRedis(client), nil
	default:
		return cache.NewLocal(db), nil
	}
}

// deviceID returns a stable per-install identifier, minting one on first use.
func deviceID(cfg config.Config) (string, error) {
	if cfg.DeviceID != "" {
		return cfg.DeviceID, nil
	}
	path := filepath.Join(cfg.DataDir, "device_id")
	if raw, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(raw)); id != "" {
			return id, nil
		}
	}
	id := uuid.NewString()
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("persist device id: %w", err)
	}
	return id, nil
}

func bootstrap(ctx context.Context) (*application, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(cfg.LogLevel)

	db, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Warn("close store", "error", err)
		}
	}

	responseCache, err := openCache(ctx, cfg, db)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	var sealer *secure.Sealer
	if cfg.SealKey != "" {
		sealer, err = secure.NewSealer(cfg.SealKey)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("seal key: %w", err)
		}
	}

	id, err := deviceID(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	creds := session.NewCredentials(db, sealer)
	nav := &logNavigator{logger: logger}

	// Refreshes go through an unauthenticated client so they cannot recurse
	// into the transport they serve.
	plain := gateway.New(cfg.APIBaseURL, &http.Client{Timeout: cfg.HTTPTimeout}, logger)
	transport := middleware.NewAuthTransport(nil, creds, plain, nav, logger)
	authed := gateway.New(cfg.APIBaseURL, &http.Client{Timeout: cfg.HTTPTimeout, Transport: transport}, logger)

	walletStore := wallet.NewStore(authed, db, responseCache, logger, wallet.Options{
		PageSize: cfg.PageSize,
		CacheTTL: cfg.CacheTTL,
	})
	sessionStore := session.NewStore(authed, db, creds, nav, logger, walletStore)

	if err := sessionStore.Init(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}

	return &application{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		deviceID: id,
		session:  sessionStore,
		wallet:   walletStore,
	}, cleanup, nil
}

func run(action func(ctx context.Context, app *application, c *cli.Context) error) func(*cli.Context) error {
	return func(c *cli.Context) error {
		ctx := context.Background()
		app, cleanup, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer cleanup()
		return action(ctx, app, c)
	}
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "walletctl"
	app.Usage = "SwiftWallet client with an offline-first local store"
	app.Version = version

	app.Commands = []cli.Command{
		{
			Name:  "signup",
			Usage: "request a signup OTP, or verify it when --otp is given",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "phone, p", Usage: "phone number `E164`"},
				cli.StringFlag{Name: "otp", Usage: "OTP code received by SMS"},
				cli.StringFlag{Name: "password", Usage: "account password"},
				cli.StringFlag{Name: "name", Usage: "full name"},
				cli.StringFlag{Name: "email", Usage: "email address"},
			},
			Action: run(func(ctx context.Context, app *application, c *cli.Context) error {
				if c.String("otp") == "" {
					message, err := app.session.RequestSignupOTP(ctx, c.String("phone"))
					if err != nil {
						return err
					}
					fmt.Println(message)
					return nil
				}
				return app.session.Signup(ctx, api.SignupVerifyRequest{
					PhoneNumber: c.String("phone"),
					OTPCode:     c.String("otp"),
					Password:    c.String("password"),
					FullName:    c.String("name"),
					Email:       c.String("email"),
					DeviceID:    app.deviceID,
					DeviceName:  "walletctl",
				})
			}),
		},
		{
			Name:  "login",
			Usage: "authenticate and store the session locally",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "phone, p", Usage: "phone number `E164`"},
				cli.StringFlag{Name: "password", Usage: "account password"},
			},
			Action: run(func(ctx context.Context, app *application, c *cli.Context) error {
				return app.session.Login(ctx, api.LoginRequest{
					PhoneNumber: c.String("phone"),
					Password:    c.String("password"),
					DeviceID:    app.deviceID,
					DeviceName:  "walletctl",
				})
			}),
		},
		{
			Name:  "logout",
			Usage: "clear the session and all locally cached data",
			Action: run(func(ctx context.Context, app *application, c *cli.Context) error {
				return app.session.Logout(ctx)
			}),
		},
		{
			Name:  "balance",
			Usage: "show the wallet balance, falling back to the local copy offline",
			Action: run(func(ctx context.Context, app *application, c *cli.Context) error {
				if err := app.wallet.LoadBalance(ctx); err != nil {
					return err
				}
				snapshot := app.wallet.Snapshot()
				if snapshot.Wallet == nil {
					return fmt.Errorf("no wallet available")
				}
				return printJSON(snapshot.Wallet)
			}),
		},
		{
			Name:  "history",
			Usage: "list transactions, falling back to the local copy offline",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "page", Value: 1, Usage: "page `NUMBER`"},
			},
			Action: run(func(ctx context.Context, app *application, c *cli.Context) error {
				page := c.Int("page")
				if err := app.wallet.LoadTransactions(ctx, page, page == 1); err != nil {
					return err
				}
				return printJSON(app.wallet.Snapshot().Transactions)
			}),
		},
		{
			Name:      "tx",
			Usage:     "show one transaction by reference",
			ArgsUsage: "REFERENCE",
			Action: run(func(ctx context.Context, app *application, c *cli.Context) error {
				record, err := app.wallet.TransactionDetail(ctx, c.Args().First())
				if err != nil {
					return err
				}
				return printJSON(record)
			}),
		},
		{
			Name:  "send",
			Usage: "send money to another wallet",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "to", Usage: "recipient phone `E164`"},
				cli.StringFlag{Name: "amount, a", Usage: "amount `DECIMAL`"},
				cli.StringFlag{Name: "narration, n", Usage: "transfer note"},
				cli.StringFlag{Name: "pin", Usage: "transaction PIN"},
			},
			Action: run(func(ctx context.Context, app *application, c *cli.Context) error {
				record, err := app.wallet.SendMoney(ctx, api.SendMoneyRequest{
					RecipientPhone: c.String("to"),
					Amount:         c.String("amount"),
					Narration:      c.String("narration"),
					TransactionPIN: c.String("pin"),
				})
				if err != nil {
					return err
				}
				return printJSON(record)
			}),
		},
		{
			Name:  "add-money",
			Usage: "fund the wallet from an external payment method",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "amount, a", Usage: "amount `DECIMAL`"},
				cli.StringFlag{Name: "method, m", Usage: "payment `METHOD` [card|bank_transfer|ussd]"},
				cli.StringFlag{Name: "description, d", Usage: "funding note"},
			},
			Action: run(func(ctx context.Context, app *application, c *cli.Context) error {
				record, err := app.wallet.AddMoney(ctx, api.AddMoneyRequest{
					Amount:        c.String("amount"),
					PaymentMethod: c.String("method"),
					Description:   c.String("description"),
				})
				if err != nil {
					return err
				}
				return printJSON(record)
			}),
		},
		{
			Name:  "pay-bill",
			Usage: "pay a bill from the wallet",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "type, t", Usage: "bill `TYPE` [airtime|data|electricity|cable_tv]"},
				cli.StringFlag{Name: "amount, a", Usage: "amount `DECIMAL`"},
				cli.StringFlag{Name: "phone, p", Usage: "target phone or meter `NUMBER`"},
				cli.StringFlag{Name: "pin", Usage: "transaction PIN"},
			},
			Action: run(func(ctx context.Context, app *application, c *cli.Context) error {
				record, err := app.wallet.PayBill(ctx, api.BillPaymentRequest{
					BillType:       c.String("type"),
					Amount:         c.String("amount"),
					PhoneNumber:    c.String("phone"),
					TransactionPIN: c.String("pin"),
				})
				if err != nil {
					return err
				}
				return printJSON(record)
			}),
		},
		{
			Name:  "beneficiaries",
			Usage: "list saved beneficiaries",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "favorites, f", Usage: "only favorites"},
			},
			Action: run(func(ctx context.Context, app *application, c *cli.Context) error {
				if c.Bool("favorites") {
					list, err := app.wallet.FavoriteBeneficiaries(ctx)
					if err != nil {
						return err
					}
					return printJSON(list)
				}
				if err := app.wallet.LoadBeneficiaries(ctx); err != nil {
					return err
				}
				return printJSON(app.wallet.Snapshot().Beneficiaries)
			}),
		},
		{
			Name:  "add-beneficiary",
			Usage: "save a transfer recipient",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "phone, p", Usage: "phone number `E164`"},
				cli.StringFlag{Name: "nickname, n", Usage: "display name"},
			},
			Action: run(func(ctx context.Context, app *application, c *cli.Context) error {
				saved, err := app.wallet.AddBeneficiary(ctx, c.String("phone"), c.String("nickname"))
				if err != nil {
					return err
				}
				return printJSON(saved)
			}),
		},
		{
			Name:  "analytics",
			Usage: "show the spending report for a window",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "days, d", Value: 7, Usage: "window size in `DAYS`"},
			},
			Action: run(func(ctx context.Context, app *application, c *cli.Context) error {
				report, err := app.wallet.Analytics(ctx, c.Int("days"))
				if err != nil {
					return err
				}
				return printJSON(report)
			}),
		},
		{
			Name:  "dashboard",
			Usage: "show the dashboard summary",
			Action: run(func(ctx context.Context, app *application, c *cli.Context) error {
				raw, err := app.wallet.Dashboard(ctx)
				if err != nil {
					return err
				}
				fmt.Println(string(raw))
				return nil
			}),
		},
		{
			Name:  "set-pin",
			Usage: "set the wallet transaction PIN",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "pin", Usage: "new 4-digit PIN"},
				cli.StringFlag{Name: "confirm", Usage: "PIN confirmation"},
			},
			Action: run(func(ctx context.Context, app *application, c *cli.Context) error {
				message, err := app.session.SetTransactionPIN(ctx, c.String("pin"), c.String("confirm"))
				if err != nil {
					return err
				}
				fmt.Println(message)
				return nil
			}),
		},
		{
			Name:  "profile",
			Usage: "show the profile, or update it when flags are given",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "name", Usage: "new full name"},
				cli.StringFlag{Name: "email", Usage: "new email address"},
				cli.StringFlag{Name: "picture", Usage: "display picture `FILE` to upload"},
			},
			Action: run(func(ctx context.Context, app *application, c *cli.Context) error {
				if path := c.String("picture"); path != "" {
					f, err := os.Open(path)
					if err != nil {
						return err
					}
					defer f.Close()
					url, err := app.session.UploadProfilePicture(ctx, filepath.Base(path), f)
					if err != nil {
						return err
					}
					fmt.Println(url)
					return nil
				}

				var update api.ProfileUpdate
				if c.IsSet("name") {
					name := c.String("name")
					update.FullName = &name
				}
				if c.IsSet("email") {
					email := c.String("email")
					update.Email = &email
				}
				if update.FullName != nil || update.Email != nil {
					user, err := app.session.UpdateProfile(ctx, update)
					if err != nil {
						return err
					}
					return printJSON(user)
				}

				user, err := app.session.Profile(ctx)
				if err != nil {
					return err
				}
				return printJSON(user)
			}),
		},
		{
			Name:  "chat",
			Usage: "send a support chat message, or list history with --history",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "message, m", Usage: "message `TEXT`"},
				cli.StringFlag{Name: "session, s", Usage: "chat session `ID` to continue"},
				cli.BoolFlag{Name: "history", Usage: "show chat history"},
			},
			Action: run(func(ctx context.Context, app *application, c *cli.Context) error {
				if c.Bool("history") {
					history, err := app.wallet.ChatHistory(ctx)
					if err != nil {
						return err
					}
					return printJSON(history)
				}
				reply, err := app.wallet.Chat(ctx, c.String("message"), c.String("session"))
				if err != nil {
					return err
				}
				return printJSON(reply)
			}),
		},
		{
			Name:  "purge-cache",
			Usage: "drop expired cached responses from the local store",
			Action: run(func(ctx context.Context, app *application, c *cli.Context) error {
				return app.wallet.PurgeExpiredCache(ctx)
			}),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
