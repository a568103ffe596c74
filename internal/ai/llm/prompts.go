package llm

import (
	"fmt"
	"strings"

	"mt5-smc-bot/internal/smc"
	"mt5-smc-bot/internal/terminal"
)

// approvalSystemPrompt frames the model as a last-line risk controller. The
// output contract is a single word so parsing stays trivial.
const approvalSystemPrompt = `Role: World-class SMC forex analyst and risk controller. ` +
	`Primary objective: capital preservation. ` +
	`Execution framework: ` +
	`1. Liquidity check: the system detected a liquidity sweep, verify it looks valid. ` +
	`2. Displacement: was the move away from the sweep violent and energetic? ` +
	`3. FVG validation: is the fair value gap fresh and in a high-probability zone? ` +
	`4. Market regime: is price in a clear trend or a valid reversal? Reject consolidation. ` +
	`Decision logic: respond 'GO' only if all criteria are met and the setup is textbook. ` +
	`Respond 'STOP' if there is any ambiguity, news-induced noise, or choppy action. ` +
	`Constraint: you are an execution engine. Output exactly ONE word: 'GO' or 'STOP'.`

// contextSnapshotBars is how many recent bars the approver sees.
const contextSnapshotBars = 10

// BuildApprovalContext renders the structured summary the approver judges:
// the composed setup's fields plus the most recent bars.
func BuildApprovalContext(symbol string, setup *smc.Setup, bias smc.Bias, bars []terminal.Bar) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[CONTEXT]\n")
	fmt.Fprintf(&b, "Pair: %s\n", symbol)
	fmt.Fprintf(&b, "Setup Type: %s\n", setup.Direction)
	fmt.Fprintf(&b, "HTF Bias: %s\n", bias)
	fmt.Fprintf(&b, "Sweep Level: %.5f (bar %d)\n", setup.SweepLevel, setup.Sweep.BarIndex)
	fmt.Fprintf(&b, "Entry Price: %.5f\n", setup.EntryPrice)
	fmt.Fprintf(&b, "FVG: top=%.5f bottom=%.5f midpoint=%.5f\n", setup.FVG.Top, setup.FVG.Bottom, setup.FVG.Midpoint)
	fmt.Fprintf(&b, "Displacement Found: %v\n", setup.DisplacementFound)
	fmt.Fprintf(&b, "Inducement: found=%v swept=%v\n", setup.Inducement.Found, setup.Inducement.Swept)
	if setup.CHoCH != nil {
		fmt.Fprintf(&b, "Structure Shift: %s\n", *setup.CHoCH)
	}

	fmt.Fprintf(&b, "\n[OHLC DATA (Recent %d Bars)]\n", contextSnapshotBars)
	start := len(bars) - contextSnapshotBars
	if start < 0 {
		start = 0
	}
	for i := start; i < len(bars); i++ {
		bar := bars[i]
		fmt.Fprintf(&b, "%s O=%.5f H=%.5f L=%.5f C=%.5f\n",
			bar.OpenTime().UTC().Format("2006-01-02 15:04"), bar.Open, bar.High, bar.Low, bar.Close)
	}

	b.WriteString("\nDecision (GO/STOP)?")
	return b.String()
}
