package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Harish-Uta17/portfolio/internal/scroll"
	"github.com/Harish-Uta17/portfolio/internal/section"
)

var (
	scrollViewport float64
	scrollHeights  []float64
	scrollStep     float64
	scrollTo       string
)

var scrollCmd = &cobra.Command{
	Use:   "scroll",
	Short: "Walk the section tracker down a simulated page",
	Long: `Lays the page sections out top to bottom with the given heights and
prints the tracker state at each scroll step. With --to, jumps straight
to that section the way a nav click does.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if scrollViewport <= 0 || scrollStep <= 0 || len(scrollHeights) == 0 {
			return fmt.Errorf("--viewport, --step and --heights must be positive")
		}
		page := scroll.NewPage(scrollViewport, scroll.StackedLayout(section.All, scrollHeights)...)
		tracker := scroll.NewTracker()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "OFFSET\tPERCENT\tACTIVE\tSOLID NAV\tBACK TO TOP")
		row := func() {
			st := tracker.OnScroll(page.Metrics())
			fmt.Fprintf(w, "%.0f\t%.1f%%\t%s\t%v\t%v\n",
				page.Offset(), st.Percent, section.Label(st.Active), st.ScrolledPastThreshold, st.ShowBackToTop)
		}

		if scrollTo != "" {
			id, ok := section.Parse(scrollTo)
			if !ok {
				return fmt.Errorf("unknown section %q", scrollTo)
			}
			row()
			scroll.NewNavigator(page).ScrollToSection(id)
			row()
			return w.Flush()
		}

		for off := 0.0; ; off += scrollStep {
			page.ScrollTo(off, scroll.Instant)
			row()
			if off >= page.MaxScroll() {
				break
			}
		}
		return w.Flush()
	},
}

func init() {
	scrollCmd.Flags().Float64Var(&scrollViewport, "viewport", 900, "viewport height in pixels")
	scrollCmd.Flags().Float64SliceVar(&scrollHeights, "heights", []float64{900, 700}, "section heights, repeated as needed")
	scrollCmd.Flags().Float64Var(&scrollStep, "step", 250, "pixels per step")
	scrollCmd.Flags().StringVar(&scrollTo, "to", "", "navigate to a section instead of stepping")
	rootCmd.AddCommand(scrollCmd)
}
