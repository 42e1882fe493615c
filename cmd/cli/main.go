package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/limaJavier/seating/internal/config"
	"github.com/limaJavier/seating/internal/lock"
	"github.com/limaJavier/seating/internal/metrics"
	"github.com/limaJavier/seating/internal/store"
	"github.com/limaJavier/seating/pkg/model"
	"github.com/limaJavier/seating/pkg/sat"

	"github.com/samber/lo"
)

// Exit codes
const (
	allSeated    = 10
	someUnseated = 20
	fatalFailure = 1
)

const configuration = "config.json"

// Bounds the wait for the exam lock, the run itself is bounded by the room budgets
type timedLocker struct {
	model.Locker
	timeout time.Duration
}

func (locker timedLocker) Lock(ctx context.Context, key string) (func(), error) {
	if locker.timeout <= 0 {
		return locker.Locker.Lock(ctx, key)
	}
	ctx, cancel := context.WithTimeout(ctx, locker.timeout)
	defer cancel()
	return locker.Locker.Lock(ctx, key)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
	log.SetPrefix("seating: ")

	// Define arguments
	configPathPtr := flag.String("config", defaultConfigPath(), "Path to the configuration file, where config.json next to the executable is the default")
	filePathPtr := flag.String("file", "", "Path to the input file")
	outFilePathPtr := flag.String("out", "", "Path to the file where the run summary will be written; if empty, it'll be written into the Standard Output")
	modePtr := flag.String("mode", "", `Seating mode forced on the exam: "SEMESTER" (randomized) or "MID" (roll-number order); the mode of the input file is the default`)
	solverPtr := flag.String("solver", "", fmt.Sprintf("SAT-Solver to use. Allowed values are: %v", strings.Join(sat.SolverNames(), ", ")))
	budgetPtr := flag.Duration("budget", 0, "Time budget of every room solve")
	seedPtr := flag.Uint64("seed", 0, "Seed of the randomized seating, the current time is the default")
	dbPtr := flag.String("db", "", `Assignment store: "sqlite://<path>" or a postgres URL; assignments are kept in memory when empty`)
	redisPtr := flag.String("redis", "", "Address of the Redis server guarding exam runs across processes")
	metricsPtr := flag.String("metrics", "", "Path to the Prometheus textfile where run metrics will be written")
	overrides := []string{}
	flag.Func("override", `Manual placement "<student>=<seat>" applied before the run (repeatable)`, func(value string) error {
		if !strings.Contains(value, "=") {
			return fmt.Errorf("%q is not of the form <student>=<seat>", value)
		}
		overrides = append(overrides, value)
		return nil
	})
	flag.Parse()

	// Flags take precedence over config.json and the environment
	cfg, err := config.Load(*configPathPtr)
	if err != nil {
		log.Fatalf("cannot load configuration: %v", err)
	}
	seed := uint64(time.Now().UnixNano())
	if cfg.Seed != 0 {
		seed = cfg.Seed
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			cfg.Mode = *modePtr
		case "solver":
			cfg.Solver = *solverPtr
		case "budget":
			cfg.Budget = *budgetPtr
		case "seed":
			seed = *seedPtr
		case "db":
			cfg.Database = *dbPtr
		case "redis":
			cfg.Redis = *redisPtr
		case "metrics":
			cfg.Metrics = *metricsPtr
		}
	})

	// Validate arguments
	if *filePathPtr == "" {
		log.Fatal("an input file must be specified")
	} else if cfg.Budget < 0 {
		log.Fatalf("budget must not be negative: %v", cfg.Budget)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, cfg, *filePathPtr, *outFilePathPtr, seed, overrides))
}

func run(ctx context.Context, cfg config.Config, filePath, outFile string, seed uint64, overrides []string) int {
	// Extract input
	input, err := model.InputFromJson(filePath)
	if err != nil {
		log.Printf("cannot parse input file: %v", err)
		return fatalFailure
	}
	if cfg.Mode != "" {
		input.Mode = model.ParseMode(cfg.Mode)
	}

	// Initialize engines
	solver, err := sat.NewSolver(cfg.Solver, cfg.Solvers)
	if err != nil {
		log.Print(err)
		return fatalFailure
	}

	assignmentStore, err := store.Open(ctx, cfg.Database)
	if err != nil {
		log.Printf("cannot open assignment store: %v", err)
		return fatalFailure
	}
	defer assignmentStore.Close()

	var locker model.Locker = model.NewKeyedLocker()
	if cfg.Redis != "" {
		client, err := lock.Connect(ctx, cfg.Redis)
		if err != nil {
			log.Print(err)
			return fatalFailure
		}
		defer client.Close()
		locker = lock.NewRedisLocker(client, 0)
	}

	recorder := metrics.NewRecorder()
	allocator := model.NewAllocator(
		model.NewSATAssigner(solver),
		model.WithStore(assignmentStore),
		model.WithLocker(timedLocker{Locker: locker, timeout: cfg.LockTimeout}),
		model.WithObserver(recorder),
	)

	if err := applyOverrides(ctx, assignmentStore, input, overrides); err != nil {
		log.Printf("cannot apply manual overrides: %v", err)
		return fatalFailure
	}

	// Seat the exam
	summary, err := allocator.AllocateExam(ctx, input.Request(seed, cfg.Budget))
	if err != nil {
		log.Printf("an error occurred during seat allocation: %v", err)
		return fatalFailure
	}

	if err := writeSummary(summary, outFile); err != nil {
		log.Print(err)
		return fatalFailure
	}

	for _, room := range input.Rooms {
		assignments, err := assignmentStore.Assignments(ctx, input.Exam, room.Id)
		if err != nil {
			log.Printf("cannot list assignments of room %v: %v", room.Id, err)
			return fatalFailure
		}
		log.Printf("room %v holds %d of %d seats", room.Id, len(assignments), len(room.Seats))
	}

	if cfg.Metrics != "" {
		if err := recorder.WriteTextfile(cfg.Metrics); err != nil {
			log.Printf("cannot write metrics: %v", err)
			return fatalFailure
		}
	}

	if summary.TotalSeated < summary.TotalRequested {
		return someUnseated
	}
	return allSeated
}

func applyOverrides(ctx context.Context, assignmentStore store.Store, input model.ExamInput, overrides []string) error {
	seatRooms := make(map[string]string)
	for _, room := range input.Rooms {
		for _, seat := range room.Seats {
			seatRooms[seat.Id] = room.Id
		}
	}

	for _, override := range overrides {
		student, seat, _ := strings.Cut(override, "=")
		room, ok := seatRooms[seat]
		if !ok {
			return fmt.Errorf("seat %v is not part of the exam", seat)
		} else if !lo.ContainsBy(input.Roster, func(s model.Student) bool { return s.Id == student }) {
			return fmt.Errorf("student %v is not part of the exam", student)
		}

		if _, err := assignmentStore.UpsertManual(ctx, model.SeatAssignment{
			Exam:    input.Exam,
			Student: student,
			Room:    room,
			Seat:    seat,
		}); err != nil {
			return err
		}
		log.Printf("student %v manually seated on %v", student, seat)
	}
	return nil
}

func writeSummary(summary model.RunSummary, outFile string) error {
	summaryJson, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("an error occurred while building output json: %w", err)
	}

	// Verify outfile is empty, if so then write the results to the Standard Output
	if outFile == "" {
		fmt.Println(string(summaryJson))
		return nil
	}
	if err := os.WriteFile(outFile, summaryJson, 0666); err != nil {
		return fmt.Errorf("an error occurred while writing to the output file: %w", err)
	}
	return nil
}

func defaultConfigPath() string {
	execPath, err := os.Executable()
	if err != nil {
		return configuration
	}
	return path.Join(path.Dir(execPath), configuration)
}
