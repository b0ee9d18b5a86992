package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"territory-planner/internal/database"
	"territory-planner/internal/ingest"
	"territory-planner/internal/models"
	"territory-planner/internal/progress"
	"territory-planner/internal/server"
	"territory-planner/internal/territory"
	"territory-planner/internal/workspace"
)

// OptimizeOptions holds the flags of the optimize command
type OptimizeOptions struct {
	CustomersPath       string
	RepresentativesPath string
	OutPath             string
	SaveAs              string
	Iterations          int
	Seed                int64
	LockTop             bool
	Workload            float64
	Potential           float64
	Efficiency          float64
	Quiet               bool
}

// OptimizeOutput is the JSON shape of an optimize run
type OptimizeOutput struct {
	Import  *ingest.Report               `json:"import"`
	Result  *territory.Result            `json:"result"`
	Stats   []models.RepresentativeStats `json:"representatives"`
	Written string                       `json:"written,omitempty"`
	Saved   string                       `json:"saved,omitempty"`
}

func newOptimizeCmd() *cobra.Command {
	opts := &OptimizeOptions{}

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Optimize the territory assignment of a spreadsheet export",
		Long: "Reads the customer and representative tables, runs the reassignment\n" +
			"optimizer and writes the resulting assignment.",
		Example: "  planner optimize --customers kunden.xlsx --representatives vertreter.xlsx --out plan.xlsx\n" +
			"  planner optimize --customers kunden.csv --representatives vertreter.csv --lock-top --seed 7 -o json",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimize(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.CustomersPath, "customers", "", "customer table (.xlsx or .csv)")
	f.StringVar(&opts.RepresentativesPath, "representatives", "", "representative table (.xlsx or .csv)")
	f.StringVar(&opts.OutPath, "out", "", "write the assignment to this file (.xlsx, .csv or .yaml)")
	f.StringVar(&opts.SaveAs, "save", "", "store the result as a named scenario")
	f.IntVar(&opts.Iterations, "iterations", 0, "optimizer iterations (default from config)")
	f.Int64Var(&opts.Seed, "seed", 0, "random seed (default from config)")
	f.BoolVar(&opts.LockTop, "lock-top", false, "keep the top 10% of customers by revenue with their representative")
	f.Float64Var(&opts.Workload, "workload", 0, "workload weight")
	f.Float64Var(&opts.Potential, "potential", 0, "potential weight")
	f.Float64Var(&opts.Efficiency, "efficiency", 0, "efficiency weight")
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "suppress progress output")
	_ = cmd.MarkFlagRequired("customers")
	_ = cmd.MarkFlagRequired("representatives")

	return cmd
}

func runOptimize(cmd *cobra.Command, opts *OptimizeOptions) error {
	cc, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	if opts.Iterations < 0 {
		return fmt.Errorf("iterations must not be negative")
	}
	if opts.OutPath != "" {
		if _, err := outputKind(opts.OutPath); err != nil {
			return err
		}
	}

	ds, report, err := ingest.LoadFiles(opts.CustomersPath, opts.RepresentativesPath)
	if err != nil {
		return err
	}
	for _, s := range report.Skipped {
		cc.Logger.Warn("skipped row", zap.String("table", s.Table), zap.Int("row", s.Row), zap.String("reason", s.Reason))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store database.DataStore
	if opts.SaveAs != "" {
		store, err = cc.openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	ws := workspace.New(workspace.Options{
		Store:    store,
		Logger:   cc.Logger,
		Defaults: server.Defaults(cc.Config.Optimizer),
	})
	if err := ws.Load(ctx, ds); err != nil {
		return err
	}

	req := optimizeRequest(cmd, opts)
	var progressOut io.Writer = cmd.ErrOrStderr()
	if opts.Quiet || cc.OutputFormat == OutputJSON {
		progressOut = io.Discard
	}
	res, err := runWithProgress(ctx, ws, req, progressOut)
	if err != nil {
		return err
	}

	out := OptimizeOutput{Import: report, Result: res}
	if out.Stats, err = ws.Stats(); err != nil {
		return err
	}
	if opts.OutPath != "" {
		if err := writeAssignment(opts.OutPath, ws); err != nil {
			return err
		}
		out.Written = opts.OutPath
	}
	if opts.SaveAs != "" {
		sc, err := ws.SaveScenario(ctx, opts.SaveAs)
		if err != nil {
			return err
		}
		out.Saved = sc.Name
	}

	if cc.OutputFormat == OutputJSON {
		return printJSON(cmd.OutOrStdout(), out)
	}
	printOptimizeText(cmd.OutOrStdout(), out)
	return nil
}

// optimizeRequest only overrides what was given on the command line
func optimizeRequest(cmd *cobra.Command, opts *OptimizeOptions) workspace.OptimizeRequest {
	f := cmd.Flags()
	req := workspace.OptimizeRequest{
		Iterations: opts.Iterations,
		Seed:       opts.Seed,
	}
	if f.Changed("workload") || f.Changed("potential") || f.Changed("efficiency") {
		req.Weights = &models.Weights{
			Workload:   opts.Workload,
			Potential:  opts.Potential,
			Efficiency: opts.Efficiency,
		}
	}
	if f.Changed("lock-top") {
		req.Constraints = &models.Constraints{LockTopCustomers: opts.LockTop}
	}
	return req
}

// runWithProgress starts a background run and prints its progress events
// until it finishes. Cancelling ctx cancels the run.
func runWithProgress(ctx context.Context, ws *workspace.Workspace, req workspace.OptimizeRequest, out io.Writer) (*territory.Result, error) {
	run, err := ws.StartOptimize(req)
	if err != nil {
		return nil, err
	}
	events := ws.Broker().Subscribe(run.ID)
	defer ws.Broker().Unsubscribe(run.ID, events)

	// A run that ends before the subscription is caught by polling.
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	done := ctx.Done()
	for {
		select {
		case <-done:
			ws.CancelRun(run.ID)
			done = nil
		case evt, ok := <-events:
			if ok && !evt.Terminal() && evt.State == progress.StateRunning {
				fmt.Fprintf(out, "\riteration %d/%d  cost %.4f  accepted %d", evt.Iteration, evt.Total, evt.Cost, evt.Accepted)
			}
		case <-ticker.C:
		}

		current, _ := ws.Run(run.ID)
		if current != nil && current.FinishedAt != nil {
			fmt.Fprintln(out)
			if current.Error != "" {
				return current.Result, fmt.Errorf("optimization %s: %s", current.State, current.Error)
			}
			return current.Result, nil
		}
	}
}

func outputKind(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".xlsx", ".csv", ".yaml", ".yml":
		return ext, nil
	}
	return "", fmt.Errorf("unsupported output file %q (want .xlsx, .csv or .yaml)", path)
}

func writeAssignment(path string, ws *workspace.Workspace) error {
	kind, err := outputKind(path)
	if err != nil {
		return err
	}
	ds, err := ws.Dataset()
	if err != nil {
		return err
	}
	a, err := ws.Assignment()
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	switch kind {
	case ".xlsx":
		err = ingest.WriteAssignmentXLSX(f, ds, a)
	case ".csv":
		err = ingest.WriteAssignmentCSV(f, ds, a)
	default:
		cost, costErr := ws.Cost(nil)
		if costErr != nil {
			return costErr
		}
		err = ingest.WriteScenarioYAML(f, &models.Scenario{
			Name:       strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			CreatedAt:  time.Now(),
			Cost:       cost,
			Assignment: a,
		})
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func printOptimizeText(w io.Writer, out OptimizeOutput) {
	res := out.Result
	fmt.Fprintf(w, "Imported %d customers and %d representatives (%d rows skipped)\n",
		out.Import.Customers, out.Import.Representatives, len(out.Import.Skipped))
	fmt.Fprintf(w, "Cost %.4f -> %.4f after %d iterations (%d accepted, %d rejected, %d skipped) in %s\n",
		res.InitialCost, res.FinalCost, res.Iterations, res.Accepted, res.Rejected(), res.Skipped,
		res.Duration.Round(time.Millisecond))
	if res.Locked > 0 {
		fmt.Fprintf(w, "%d customers locked to their representative\n", res.Locked)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tREPRESENTATIVE\tCUSTOMERS\tREVENUE\tBALANCED")
	for _, s := range out.Stats {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%.2f\t%t\n", s.RepresentativeID, s.Name, s.Customers, s.Revenue, s.InBand)
	}
	tw.Flush()

	if out.Written != "" {
		fmt.Fprintf(w, "Assignment written to %s\n", out.Written)
	}
	if out.Saved != "" {
		fmt.Fprintf(w, "Saved as scenario %q\n", out.Saved)
	}
}
