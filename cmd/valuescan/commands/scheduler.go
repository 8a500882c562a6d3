package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/valuescan/internal/scheduler"
	"github.com/wonny/valuescan/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run or inspect scheduled jobs",
	Long: `Scheduled jobs:
  universe_warm         - SCHEDULE_UNIVERSE_WARM (refresh every listings cache)
  nightly_scan_<name>   - SCHEDULE_NIGHTLY_SCAN over SCHEDULE_NIGHTLY_UNIVERSE

Example:
  go run ./cmd/valuescan scheduler start
  go run ./cmd/valuescan scheduler list
  go run ./cmd/valuescan scheduler run universe_warm`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon (Ctrl+C to stop)",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs and their next run",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job now and wait for it",
		Args:  cobra.ExactArgs(1),
		RunE:  runJobNow,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

// newScheduler registers the jobs against the wired service
func (a *app) newScheduler() (*scheduler.Scheduler, error) {
	sc := a.cfg.Scheduler
	sched := scheduler.New(a.log)

	for _, job := range []scheduler.Job{
		jobs.NewUniverseWarmJob(a.resolver, sc.UniverseWarmSpec, a.log),
		jobs.NewNightlyScanJob(a.svc, sc.NightlyUniverse, sc.NightlyScanSpec, a.cfg.Scan.MaxParallel, a.log),
	} {
		if err := sched.AddJob(job); err != nil {
			return nil, fmt.Errorf("register job: %w", err)
		}
	}
	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := a.newScheduler()
	if err != nil {
		return err
	}

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	ctx, stop := signalContext()
	defer stop()
	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := a.newScheduler()
	if err != nil {
		return err
	}

	// cron only computes next runs once started
	sched.Start()
	defer sched.Stop()

	stats := sched.GetJobStats()
	widths := []int{26, 18, 20}
	PrintTableHeader([]string{"JOB", "SCHEDULE", "NEXT RUN"}, widths)
	for _, name := range sched.GetAllJobs() {
		s := stats[name]
		next := "-"
		if s.NextRun != nil {
			next = s.NextRun.Format("2006-01-02 15:04:05")
		}
		PrintTableRow([]string{name, s.Schedule, next}, widths)
	}
	return nil
}

func runJobNow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := a.newScheduler()
	if err != nil {
		return err
	}

	result, err := sched.RunJob(args[0])
	if err != nil {
		return err
	}

	if jsonOutput {
		return PrintJSON(result)
	}
	if !result.Success {
		PrintError(fmt.Sprintf("%s failed after %.1fs: %s", result.JobName, result.Duration.Seconds(), result.Error))
		return fmt.Errorf("job %s failed", result.JobName)
	}
	fmt.Printf("✅ %s completed in %.1fs\n", result.JobName, result.Duration.Seconds())
	return nil
}
