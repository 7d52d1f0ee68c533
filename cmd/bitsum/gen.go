package main

import (
	"math/rand"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ardanlabs/bitsum/cases"
)

func (a *app) genCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Print random cases as \"input expected\" lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			seed := a.cfg.GetInt64("seed")
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			n := a.cfg.GetInt("count")

			cs, err := cases.Generate(rand.New(rand.NewSource(seed)), n)
			if err != nil {
				return err
			}
			a.log.Debug("generated", zap.Int64("seed", seed), zap.Int("cases", len(cs)))

			return cases.Write(a.stdout, cs)
		},
	}

	cmd.Flags().IntP("count", "n", cases.DefaultCount, "number of random cases")
	cmd.Flags().Int64("seed", 0, "random seed (0 picks one)")
	return cmd
}
