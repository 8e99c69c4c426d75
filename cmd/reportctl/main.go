package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/fatih/color"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nurulabs/roiprojector/projector"
)

var (
	titleColor   = color.New(color.FgMagenta, color.Bold)
	sectionColor = color.New(color.FgCyan, color.Bold)
	valueColor   = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)

	money = message.NewPrinter(language.English)
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "reportctl",
		Short: "Inspect stored ROI projections, patterns, and insights",
	}

	rootCmd.AddCommand(newReportCommand())
	rootCmd.AddCommand(newStatsCommand())
	rootCmd.AddCommand(newAnalyzeCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openStore() (*sql.DB, *projector.PostgresStore, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, projector.NewPostgresStore(db), nil
}

func newReportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the monthly intelligence report",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, store, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			report, err := projector.NewInsightGenerator(store).MonthlyReport()
			if err != nil {
				return fmt.Errorf("failed to build report: %w", err)
			}

			titleColor.Printf("Monthly Report (%s)\n\n", report.Period)
			fmt.Printf("Total projections: ")
			valueColor.Printf("%d\n", report.TotalProjections)
			fmt.Printf("Avg annual savings: ")
			valueColor.Println(money.Sprintf("$%.2f", report.AvgAnnualSavings))
			fmt.Printf("Avg ROI: ")
			valueColor.Printf("%.1f%%\n", report.AvgROIPercentage)

			sectionColor.Println("\nTop processes")
			if len(report.TopProcesses) == 0 {
				warnColor.Println("  (no data yet)")
			}
			for i, p := range report.TopProcesses {
				fmt.Printf("  %d. %s  ", i+1, p.Process)
				valueColor.Println(money.Sprintf("%.1f%% ROI, $%.0f avg savings, %d cases",
					p.AvgROI, p.AvgSavings, p.Frequency))
			}

			sectionColor.Println("\nMarket opportunities")
			if len(report.MarketOpportunities) == 0 {
				warnColor.Println("  (none identified)")
			}
			for _, o := range report.MarketOpportunities {
				fmt.Printf("  - %s  ", o.Opportunity)
				valueColor.Println(money.Sprintf("%d companies, $%d potential revenue",
					o.MarketSize, o.PotentialRevenue))
			}

			sectionColor.Println("\nInsights")
			if len(report.Insights) == 0 {
				warnColor.Println("  (none yet)")
			}
			for _, ins := range report.Insights {
				fmt.Printf("  - [%.0f%%] %s\n", ins.Confidence*100, ins.Text)
			}

			if len(report.Recommendations) > 0 {
				sectionColor.Println("\nRecommendations")
				for _, rec := range report.Recommendations {
					fmt.Printf("  - %s\n", rec)
				}
			}
			return nil
		},
	}
}

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print aggregate projection statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, store, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			total, err := store.CountProjections()
			if err != nil {
				return err
			}
			avgSavings, avgROI, err := store.ProjectionAverages()
			if err != nil {
				return err
			}
			industries, err := store.TopIndustriesBySavings(1, 5)
			if err != nil {
				return err
			}

			titleColor.Println("Projection Statistics")
			fmt.Printf("Total projections: ")
			valueColor.Printf("%d\n", total)
			fmt.Printf("Avg annual savings: ")
			valueColor.Println(money.Sprintf("$%.2f", avgSavings))
			fmt.Printf("Avg ROI: ")
			valueColor.Printf("%.1f%%\n", avgROI)

			sectionColor.Println("\nTop industries by savings")
			if len(industries) == 0 {
				warnColor.Println("  (no data yet)")
			}
			for i, ind := range industries {
				fmt.Printf("  %d. %s  ", i+1, ind.Name)
				valueColor.Println(money.Sprintf("$%.0f avg savings, %d cases",
					ind.AvgSavings, ind.Frequency))
			}
			return nil
		},
	}
}

func newAnalyzeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Run pattern analysis and store any new insights",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, store, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			gen := projector.NewInsightGenerator(store)
			if err := gen.Analyze(); err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			insights, err := store.RecentInsights(1, 10)
			if err != nil {
				return err
			}
			titleColor.Println("Analysis complete")
			if len(insights) == 0 {
				warnColor.Println("Not enough data for insights yet (3+ cases per group required)")
				return nil
			}
			for _, ins := range insights {
				fmt.Printf("  - [%.0f%%] %s\n", ins.Confidence*100, ins.Text)
			}
			return nil
		},
	}
}
