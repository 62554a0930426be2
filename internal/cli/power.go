package cli

import (
	"fmt"

	"github.com/ppiankov/sprstat/internal/stats"
	"github.com/spf13/cobra"
)

var (
	powerEffects []float64
	powerAlpha   float64
	powerTarget  float64
	powerR       float64
)

// powerCmd represents the power command
var powerCmd = &cobra.Command{
	Use:   "power",
	Short: "Print required sample sizes for planned effect sizes",
	Long: `Power prints the participants needed to detect each effect size with a
two-sided test, for independent groups and for repeated measures with the
assumed within-subject correlation.

Example:
  sprstat power
  sprstat power --d 0.35 --d 0.6 --power 0.9`,
	RunE: runPower,
}

func init() {
	rootCmd.AddCommand(powerCmd)
	powerCmd.Flags().Float64SliceVar(&powerEffects, "d", nil, "effect size (repeatable; default from config)")
	powerCmd.Flags().Float64Var(&powerAlpha, "alpha", 0, "significance level (default from config)")
	powerCmd.Flags().Float64Var(&powerTarget, "power", 0, "target power (default from config)")
	powerCmd.Flags().Float64Var(&powerR, "r", 0, "within-subject correlation (default from config)")
}

func runPower(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pc := cfg.Power
	if cmd.Flags().Changed("d") {
		pc.EffectSizes = powerEffects
	}
	if cmd.Flags().Changed("alpha") {
		pc.Alpha = powerAlpha
	}
	if cmd.Flags().Changed("power") {
		pc.Power = powerTarget
	}
	if cmd.Flags().Changed("r") {
		pc.WithinR = powerR
	}

	fmt.Printf("alpha = %g, power = %g, r = %g\n\n", pc.Alpha, pc.Power, pc.WithinR)
	fmt.Printf("%-12s %8s %18s %10s\n", "Effect", "d", "N between (each)", "N within")
	for _, d := range pc.EffectSizes {
		n, err := stats.RequiredSampleSize(d, pc.Alpha, pc.Power, pc.WithinR)
		if err != nil {
			return err
		}
		fmt.Printf("%-12s %8.3f %18d %10d\n", stats.Magnitude(d), d, n.Between, n.Within)
	}
	return nil
}
