package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/daftuyda/Igris/internal/service"
	"github.com/daftuyda/Igris/internal/ui"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Close the day for every user whose local date has rolled over",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		report, err := rt.scheduler().Sweep(cmd.Context(), rt.svc.Clock().Now())
		if err != nil {
			return err
		}
		renderSweep(cmd.OutOrStdout(), report)
		if len(report.Failed) > 0 {
			return fmt.Errorf("%d user(s) failed", len(report.Failed))
		}
		return nil
	},
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <user-id>",
	Short: "Evaluate a user's current day immediately",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		res, err := rt.svc.TriggerEvaluationNow(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		renderEvaluation(cmd.OutOrStdout(), res)
		return nil
	},
}

var (
	userName     string
	userTimezone string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		user, err := rt.svc.CreateUser(cmd.Context(), &service.UserRequest{Name: userName, Timezone: userTimezone})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.Good.Render("created user"))
		fmt.Fprintln(out, ui.LabelValue("id", user.ID))
		fmt.Fprintln(out, ui.LabelValue("name", user.Name))
		fmt.Fprintln(out, ui.LabelValue("timezone", user.Timezone))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <user-id>",
	Short: "Show a user's level, rank and streak",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		profile, err := rt.svc.Profile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		renderProfile(cmd.OutOrStdout(), profile)
		return nil
	},
}

func init() {
	userAddCmd.Flags().StringVar(&userName, "name", "", "display name")
	userAddCmd.Flags().StringVar(&userTimezone, "timezone", "UTC", "IANA zone the user's days are counted in")
	_ = userAddCmd.MarkFlagRequired("name")
	userCmd.AddCommand(userAddCmd)
}

func renderProfile(w io.Writer, p *service.Profile) {
	prog := p.Progress
	fmt.Fprintln(w, ui.Heading(p.User.Name)+" "+ui.RankBadge(string(prog.Rank)))
	fmt.Fprintln(w, ui.LabelValue("level", prog.Level))
	fmt.Fprintf(w, "%s %s %.0f%%\n", ui.Key.Render("xp:"), ui.Bar(prog.ProgressPercent, 20), prog.ProgressPercent)
	fmt.Fprintln(w, ui.Muted.Render(fmt.Sprintf("%d xp, %d to next level", prog.XP, prog.XPToNext)))
	fmt.Fprintln(w, ui.LabelValue("streak", fmt.Sprintf("%d (best %d)", p.User.Streak, p.User.BestStreak)))
	fmt.Fprintln(w, ui.LabelValue("tasks", p.TotalTasks))
	if p.LatestDay != nil {
		fmt.Fprintln(w, ui.LabelValue("today", ui.Signed(p.LatestDay.Net)))
	}
}

func renderEvaluation(w io.Writer, r *service.EvaluationResult) {
	fmt.Fprintln(w, ui.Heading("Day closed: "+r.LocalDate+" ("+r.Weekday.String()+")"))
	for _, e := range r.Entries {
		fmt.Fprintf(w, "  %s %s\n", ui.Signed(e.Amount), e.Reason)
	}
	fmt.Fprintln(w, ui.LabelValue("completed", fmt.Sprintf("%d/%d", r.Completed, r.DueTasks)))
	fmt.Fprintln(w, ui.LabelValue("xp", fmt.Sprintf("%d -> %d", r.XPBefore, r.XPAfter)))
	if r.LevelAfter > r.LevelBefore {
		fmt.Fprintln(w, ui.Gold.Render(fmt.Sprintf("level up! %d -> %d", r.LevelBefore, r.LevelAfter)))
	} else if r.LevelAfter < r.LevelBefore {
		fmt.Fprintln(w, ui.Warn.Render(fmt.Sprintf("level down %d -> %d", r.LevelBefore, r.LevelAfter)))
	}
	fmt.Fprintln(w, ui.LabelValue("streak", r.Streak))
}

func renderSweep(w io.Writer, r service.SweepReport) {
	fmt.Fprintln(w, ui.Heading("Sweep"))
	fmt.Fprintln(w, ui.LabelValue("users", r.Users))
	fmt.Fprintln(w, ui.LabelValue("evaluated", r.Evaluated))
	fmt.Fprintln(w, ui.LabelValue("skipped", r.Skipped))
	fmt.Fprintln(w, ui.LabelValue("took", r.Duration.Round(time.Millisecond)))
	ids := make([]string, 0, len(r.Failed))
	for id := range r.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintln(w, ui.Bad.Render("failed "+id+": "+r.Failed[id].Error()))
	}
}
