package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"agrichain/internal/app"
	"agrichain/internal/config"
	"agrichain/internal/db"
	"agrichain/internal/domain"
	"agrichain/internal/ledger"
	"agrichain/internal/payment"
	"agrichain/internal/server"
	"agrichain/internal/store"
	agrichainsdk "agrichain/sdk/go"
)

var rootCmd = &cobra.Command{
	Use:   "agc",
	Short: "Agrichain CLI",
	Long: `Agrichain tracks produce from harvest to sale and settles payments with a
fee-inclusive total.
- Workspace: the .agrichain directory holds the durable state (payment
  history, operation journal); produce records live in server memory.
- Produce: records flow Harvested -> Packaged -> In Transit -> Delivered,
  with Paid and Registered and Sold as purchase outcomes.
- Ledger: every write is mirrored best-effort to an external chain client;
  a failed mirror never blocks the local write.
- Payments: orders carry a 2% processing fee plus 18% GST on top of the
  base price; history survives restarts.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("AGRICHAIN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().String("api", "", "remote API base URL (produce commands)")
	rootCmd.PersistentFlags().String("api-base-path", "v0", "remote API base path")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("api", rootCmd.PersistentFlags().Lookup("api"))
	_ = viper.BindPFlag("api-base-path", rootCmd.PersistentFlags().Lookup("api-base-path"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(demoCmd())
	rootCmd.AddCommand(produceCmd())
	rootCmd.AddCommand(feesCmd())
	rootCmd.AddCommand(paymentsCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(configCmd())
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			a, err := app.Open(cmd.Context(), workspace, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()
			if basePath == "" {
				basePath = a.Config.Server.BasePath
			}
			jwtSecret := os.Getenv("AGRICHAIN_JWT_SECRET")
			if jwtSecret == "" {
				jwtSecret = a.Config.Server.JWTSecret
			}
			handler, err := server.New(server.Config{
				App:           a,
				BasePath:      basePath,
				Auth:          server.AuthConfig{JWTSecret: jwtSecret},
				WebhookSecret: a.Config.Gateway.Secret,
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Agrichain API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (defaults from config)")
	return cmd
}

func demoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted harvest-to-payment flow in-process",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				actor := viper.GetString("actor-id")
				fields := ledger.RegisterFields{CreateFields: store.CreateFields{
					Name:        "Alphonso Mangoes",
					Farmer:      "Ravi Kumar",
					Location:    "Ratnagiri",
					Quality:     "Premium",
					Unit:        "kg",
					HarvestDate: time.Now().Format("2006-01-02"),
					Price:       100,
					Quantity:    10,
				}}
				rec, err := a.Ledger.RegisterItem(ctx, fields, actor)
				if err != nil {
					return err
				}
				fmt.Printf("Registered %s (%s)\n", rec.Name, rec.ID)
				for _, step := range []struct{ status, location string }{
					{domain.StatusPackaged, "Packing shed"},
					{domain.StatusInTransit, "NH-48"},
				} {
					rec, err = a.Ledger.UpdateStatus(ctx, rec.ID, step.status, store.TransitionOptions{Location: step.location}, actor)
					if err != nil {
						return err
					}
					fmt.Printf("  -> %s at %s\n", rec.Status, step.location)
				}
				order, err := a.Orchestrator.CreateOrder(rec, rec.Price)
				if err != nil {
					return err
				}
				result, err := a.Orchestrator.Charge(ctx, order, rec, payment.ChargeOptions{BuyerID: "demo-buyer"})
				if err != nil {
					return err
				}
				if result.Dismissed {
					fmt.Println("payment dismissed, stopping demo")
					return nil
				}
				fmt.Printf("Charged %s %.2f (order %s)\n", order.Currency, order.Amount, order.ID)
				rec, err = a.Ledger.UpdateStatus(ctx, rec.ID, domain.StatusDelivered, store.TransitionOptions{Location: "Azadpur Mandi"}, actor)
				if err != nil {
					return err
				}
				fmt.Printf("  -> %s at Azadpur Mandi\n", rec.Status)
				printProduceTable([]domain.ProduceRecord{rec})
				printPaymentsTable(a.History.All())
				return nil
			})
		},
	}
	return cmd
}

func produceCmd() *cobra.Command {
	p := &cobra.Command{
		Use:   "produce",
		Short: "Manage produce records via the API",
		Long:  "Produce commands talk to a running agc serve instance. Set --api or AGRICHAIN_API to the server's base URL.",
	}
	p.AddCommand(produceRegisterCmd())
	p.AddCommand(produceListCmd())
	p.AddCommand(produceShowCmd())
	p.AddCommand(produceStatusCmd())
	p.AddCommand(produceHistoryCmd())
	p.AddCommand(produceMirrorCmd())
	p.AddCommand(producePayCmd())
	return p
}

func produceRegisterCmd() *cobra.Command {
	var in agrichainsdk.RegisterProduceInput
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register new produce",
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := sdkClient().RegisterProduce(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printJSONOrTable(rec)
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "produce name")
	cmd.Flags().StringVar(&in.Farmer, "farmer", "", "farmer name")
	cmd.Flags().StringVar(&in.Location, "location", "", "origin location")
	cmd.Flags().StringVar(&in.Quality, "quality", "", "quality grade (Premium, Standard, Basic)")
	cmd.Flags().StringVar(&in.Unit, "unit", "", "quantity unit")
	cmd.Flags().StringVar(&in.HarvestDate, "harvest-date", "", "harvest date (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&in.Price, "price", 0, "base price")
	cmd.Flags().Float64Var(&in.Quantity, "quantity", 0, "quantity")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("farmer")
	_ = cmd.MarkFlagRequired("location")
	return cmd
}

func produceListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List produce",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := sdkClient().ListProduce(cmd.Context(), status)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(items)
			}
			printProduceTable(items)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	return cmd
}

func produceShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one produce record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := sdkClient().GetProduce(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSONOrTable(rec)
		},
	}
	return cmd
}

func produceStatusCmd() *cobra.Command {
	var status, location, details string
	cmd := &cobra.Command{
		Use:   "set-status <id>",
		Short: "Update produce status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := sdkClient().UpdateStatus(cmd.Context(), args[0], status, location, details)
			if err != nil {
				return err
			}
			return printJSONOrTable(rec)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "new status")
	cmd.Flags().StringVar(&location, "location", "", "current location")
	cmd.Flags().StringVar(&details, "details", "", "free-form details")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func produceHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <id>",
		Short: "Show a record's status history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := sdkClient().GetHistory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(entries)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Action", "Timestamp", "Location", "Details"})
			for _, e := range entries {
				tw.AppendRow(table.Row{e.Action, e.Timestamp, e.Location, e.Details})
			}
			tw.Render()
			return nil
		},
	}
	return cmd
}

func produceMirrorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror <id>",
		Short: "Show the chain's view of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := sdkClient().GetMirror(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSONOrTable(rec)
		},
	}
	return cmd
}

func producePayCmd() *cobra.Command {
	var buyerID string
	cmd := &cobra.Command{
		Use:   "pay <id>",
		Short: "Pay the fee-inclusive total for a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if buyerID == "" {
				buyerID = viper.GetString("actor-id")
			}
			res, err := sdkClient().Pay(cmd.Context(), args[0], buyerID)
			if err != nil {
				return err
			}
			if res.Dismissed {
				fmt.Println("payment dismissed, nothing charged")
				return nil
			}
			return printJSONOrTable(res.Payment)
		},
	}
	cmd.Flags().StringVar(&buyerID, "buyer", "", "buyer id (defaults to actor-id)")
	return cmd
}

func feesCmd() *cobra.Command {
	f := &cobra.Command{Use: "fees", Short: "Fee calculations"}
	f.AddCommand(feesQuoteCmd())
	return f
}

func feesQuoteCmd() *cobra.Command {
	var amount float64
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote the fee breakdown for a base amount",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				b, err := a.Fees.Compute(amount)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(b)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendRow(table.Row{"Base", fmt.Sprintf("%.2f", b.BaseAmount)})
				tw.AppendRow(table.Row{"Processing fee", fmt.Sprintf("%.2f", b.ProcessingFee)})
				tw.AppendRow(table.Row{"GST", fmt.Sprintf("%.2f", b.GST)})
				tw.AppendRow(table.Row{"Total", fmt.Sprintf("%.2f", b.TotalAmount)})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&amount, "amount", 0, "base amount")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func paymentsCmd() *cobra.Command {
	p := &cobra.Command{Use: "payments", Short: "Payment history"}
	p.AddCommand(paymentsListCmd())
	return p
}

func paymentsListCmd() *cobra.Command {
	var itemID, buyerID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored payment records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				var items []domain.PaymentRecord
				switch {
				case itemID != "":
					items = a.History.ByItem(itemID)
				case buyerID != "":
					items = a.History.ByBuyer(buyerID)
				default:
					items = a.History.All()
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				printPaymentsTable(items)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&itemID, "item", "", "filter by produce id")
	cmd.Flags().StringVar(&buyerID, "buyer", "", "filter by buyer id")
	return cmd
}

func logCmd() *cobra.Command {
	l := &cobra.Command{Use: "log", Short: "Operation journal"}
	l.AddCommand(logTailCmd())
	return l
}

func logTailCmd() *cobra.Command {
	var n int
	var entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail journal events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				var (
					events []domain.Event
					err    error
				)
				if entityKind != "" && entityID != "" {
					events, err = a.Journal.ByEntity(ctx, entityKind, entityID)
				} else {
					events, err = a.Journal.Tail(ctx, n)
				}
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind (produce, payment)")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func configCmd() *cobra.Command {
	c := &cobra.Command{Use: "config", Short: "Workspace configuration"}
	c.AddCommand(configShowCmd())
	c.AddCommand(configInitCmd())
	return c
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	}
	return cmd
}

func configInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default agrichain.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	return cmd
}

// --- helpers ---

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	a, err := app.Open(ctx, viper.GetString("workspace"), app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func sdkClient() *agrichainsdk.Client {
	base := viper.GetString("api")
	if base == "" {
		base = "http://127.0.0.1:8080"
	}
	c := agrichainsdk.New(base)
	c.BasePath = viper.GetString("api-base-path")
	c.ActorID = viper.GetString("actor-id")
	if token := os.Getenv("AGRICHAIN_TOKEN"); token != "" {
		c.BearerToken = token
	}
	return c
}

func printProduceTable(items []domain.ProduceRecord) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Name", "Farmer", "Status", "Price", "Owner"})
	for _, rec := range items {
		tw.AppendRow(table.Row{rec.ID, rec.Name, rec.Farmer, rec.Status, fmt.Sprintf("%.2f", rec.Price), rec.Owner})
	}
	tw.Render()
}

func printPaymentsTable(items []domain.PaymentRecord) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Order", "Amount", "Currency", "Status", "Buyer", "Applied"})
	for _, p := range items {
		tw.AppendRow(table.Row{p.ID, p.OrderID, fmt.Sprintf("%.2f", p.Amount), p.Currency, p.Status, p.BuyerID, p.LedgerApplied})
	}
	tw.Render()
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
