package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/coursepilot/coursepilot/internal/optimizer"
	"github.com/coursepilot/coursepilot/pkg/types"
)

// NewOptimizeCmd creates the optimize command.
func NewOptimizeCmd() *cobra.Command {
	var (
		courses       []string
		term          string
		institution   string
		maxResults    int
		earliestStart string
		latestEnd     string
		minRating     float64
		preferDays    []string
		avoidGaps     bool
		autoPopulate  bool
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Build ranked, conflict-free schedules for a set of courses",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := optimizer.Request{
				RequiredCourses: courses,
				Term:            term,
				Institution:     institution,
				MaxResults:      maxResults,
				AutoPopulate:    autoPopulate,
				Constraints: types.ScheduleConstraints{
					PreferredDays:       preferDays,
					EarliestStart:       earliestStart,
					LatestEnd:           latestEnd,
					MinInstructorRating: minRating,
					AvoidGaps:           avoidGaps,
				},
			}
			return runOptimize(req)
		},
	}

	cmd.Flags().StringSliceVar(&courses, "courses", nil, "required course codes (comma-separated)")
	cmd.Flags().StringVar(&term, "term", "", "academic term, e.g. 2026FA")
	cmd.Flags().StringVar(&institution, "institution", "", "institution identifier")
	cmd.Flags().IntVar(&maxResults, "max-results", optimizer.DefaultMaxResults, "maximum schedules to return")
	cmd.Flags().StringVar(&earliestStart, "earliest", "", "earliest acceptable class start (HH:MM)")
	cmd.Flags().StringVar(&latestEnd, "latest", "", "latest acceptable class end (HH:MM)")
	cmd.Flags().Float64Var(&minRating, "min-rating", 0, "minimum instructor rating (0-5)")
	cmd.Flags().StringSliceVar(&preferDays, "prefer-days", nil, "preferred day tokens, e.g. M,W,F")
	cmd.Flags().BoolVar(&avoidGaps, "avoid-gaps", false, "penalize idle time between classes")
	cmd.Flags().BoolVar(&autoPopulate, "auto-populate", false, "collect missing data from the external source")
	_ = cmd.MarkFlagRequired("courses")
	_ = cmd.MarkFlagRequired("term")
	_ = cmd.MarkFlagRequired("institution")
	return cmd
}

func runOptimize(req optimizer.Request) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	a, cleanup, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := a.optimizer.Optimize(ctx, req)
	if err != nil {
		return fmt.Errorf("optimization failed: %w", err)
	}

	if len(result.Schedules) == 0 {
		color.Yellow("No feasible schedule: %s", result.Reasoning)
		return nil
	}

	bold := color.New(color.Bold)
	for i, schedule := range result.Schedules {
		_, _ = bold.Printf("\nSchedule %d  score %.3f\n", i+1, schedule.OverallScore)
		fmt.Printf("  %s\n", schedule.Reasoning)
		for _, sec := range schedule.Sections {
			meetings := make([]string, 0, len(sec.Meetings))
			for _, m := range sec.Meetings {
				meetings = append(meetings, fmt.Sprintf("%s %s-%s", m.Days, m.Start, m.End))
			}
			line := fmt.Sprintf("  %-10s %-8s %-25s %s",
				sec.CourseCode, sec.Number, strings.Join(meetings, ", "), sec.Instructor)
			fmt.Println(strings.TrimRight(line, " "))
		}
	}

	if result.Metadata.Degraded {
		fmt.Println()
		color.Yellow("Warning: built from degraded data (%s)", strings.Join(result.Metadata.Warnings, "; "))
	}
	fmt.Println()
	return nil
}
