package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/limaJavier/seating/pkg/model"

	"github.com/samber/lo"
)

const (
	executablePath = "../../bin/seating"
	KB             = 1024
)

type SolverType int

const (
	dpll SolverType = iota
	kissat
	cadical
	minisat
	glucoseSimp
	slime
)

type ResultType int

const (
	seated ResultType = iota
	unseated
)

var (
	solverTypes = map[SolverType]string{
		dpll:        "dpll",
		kissat:      "kissat",
		cadical:     "cadical",
		minisat:     "minisat",
		glucoseSimp: "glucose-simp",
		slime:       "slime",
	}
	resultTypes = map[ResultType]string{
		seated:   "seated",
		unseated: "unseated",
	}
	// Rooms, rows per room and subjects of every synthetic exam
	examSizes = [][3]int{{1, 4, 10}, {2, 6, 12}, {3, 8, 16}, {4, 10, 20}}
)

type TestMetadata struct {
	Name     string
	Students int
	Rooms    int
	Seats    int
	Subjects int
}

type BenchmarkResult struct {
	Solver        SolverType
	Mode          model.Mode
	Test          TestMetadata
	Duration      int64
	Memory        float32
	CpuPercentage int64
	Result        ResultType
}

func main() {
	directory, err := os.MkdirTemp("", "seating-benchmark")
	if err != nil {
		log.Fatalf("cannot create test directory: %v", err)
	}
	defer os.RemoveAll(directory)

	tests := getTests(directory)
	modes := []model.Mode{model.ModeSemester, model.ModeMid}
	solvers := getSolvers()
	results := make([]BenchmarkResult, 0, len(tests)*len(modes)*len(solvers))

	for _, test := range tests {
		for _, mode := range modes {
			for _, solver := range solvers {
				fmt.Printf("Benchmarking test \"%v\" with mode \"%v\" and solver \"%v\"\n", test.Name, mode, solverTypes[solver])

				duration, maxMemory, cpuPercentage, result := measure(solver, mode, test.Name)

				results = append(results, BenchmarkResult{
					Solver:        solver,
					Mode:          mode,
					Test:          test,
					Duration:      duration,
					Memory:        maxMemory,
					CpuPercentage: cpuPercentage,
					Result:        result,
				})
			}
		}
	}

	toCsv(results)
}

// Writes synthetic exams of growing size into directory: rooms of 5 columns, rosters filling 80% of the seats.
// Rooms before the last are filled up, so subjects grow with the rooms to keep every exam seatable
func getTests(directory string) []TestMetadata {
	rng := rand.New(rand.NewPCG(1, 2))
	tests := make([]TestMetadata, 0)

	for _, size := range examSizes {
		rooms, rows, subjects := size[0], size[1], size[2]
		input := generateExam(rng, rooms, rows, 5, subjects)

		filename := filepath.Join(directory, fmt.Sprintf("exam_%d_rooms_%d_rows.json", rooms, rows))
		inputJson, err := json.Marshal(input)
		if err != nil {
			log.Fatalf("cannot build test file: %v", err)
		}
		if err := os.WriteFile(filename, inputJson, 0666); err != nil {
			log.Fatalf("cannot write test file: %v", err)
		}

		tests = append(tests, TestMetadata{
			Name:     filename,
			Students: len(input.Roster),
			Rooms:    rooms,
			Seats:    rooms * rows * 5,
			Subjects: subjects,
		})
	}

	return tests
}

func generateExam(rng *rand.Rand, rooms, rows, columns, subjects int) model.RawExamInput {
	examRooms := make([]model.Room, 0, rooms)
	for room := range rooms {
		roomId := fmt.Sprintf("R%d", room)
		seats := make([]model.Seat, 0, rows*columns)
		for row := range rows {
			for column := range columns {
				seats = append(seats, model.Seat{
					Id:         fmt.Sprintf("%v-%d-%d", roomId, row, column),
					Room:       roomId,
					Row:        &row,
					Column:     &column,
					Accessible: row == 0,
				})
			}
		}
		examRooms = append(examRooms, model.Room{Id: roomId, Seats: seats})
	}

	students := rooms * rows * columns * 4 / 5
	roster := lo.Map(lo.Range(students), func(i int, _ int) model.Student {
		return model.Student{
			Id:                  fmt.Sprintf("S%d", i),
			Subject:             fmt.Sprintf("SUB%d", rng.IntN(subjects)),
			Section:             fmt.Sprintf("SEC%d", rng.IntN(subjects*4)),
			Roll:                fmt.Sprintf("21XX%04d", i+1),
			NeedsAccessibleSeat: rng.IntN(50) == 0,
		}
	})

	return model.RawExamInput{
		Exam:   "benchmark",
		Roster: roster,
		Rooms:  examRooms,
	}
}

func getSolvers() []SolverType {
	return []SolverType{dpll, kissat, cadical, minisat, glucoseSimp, slime}
}

func measure(solver SolverType, mode model.Mode, testFile string) (duration int64, maxMemory float32, cpuPercentage int64, result ResultType) {
	cmd := exec.Command("/usr/bin/time", "-v", executablePath, "-solver", solverTypes[solver], "-mode", string(mode), "-seed", "1", "-file", testFile, "-out", os.DevNull)

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stdErr bytes.Buffer
	cmd.Stderr = &stdErr

	cmd.Run()
	result, ok := resultOf(cmd.ProcessState.ExitCode())
	if !ok {
		log.Fatalf("an error occurred during the execution \"seating\" at test \"%v\" using mode \"%v\" and solver \"%v\": %v\n", testFile, mode, solverTypes[solver], stdErr.String())
	}
	splits := strings.Split(stdErr.String(), "\n")
	getLine := func(substr string) string {
		line, ok := lo.Find(splits, func(line string) bool {
			return strings.Contains(strings.ToLower(line), substr)
		})
		if !ok {
			log.Fatalf("Substring \"%v\" could not be found", substr)
		}
		return line
	}

	duration = parseDurationLine(getLine("wall clock"))
	maxMemory = parseMemoryLine(getLine("maximum resident set size"))
	cpuPercentage = parseCpuPercentageLine(getLine("percent of cpu"))

	return duration, maxMemory, cpuPercentage, result
}

// Maps the exit code of a run, 10 when everyone got a seat and 20 when someone was left out
func resultOf(exitCode int) (ResultType, bool) {
	switch exitCode {
	case 10:
		return seated, true
	case 20:
		return unseated, true
	}
	return 0, false
}

func toCsv(results []BenchmarkResult) {
	file, err := os.Create("benchmark_results.csv")
	if err != nil {
		log.Panicf("cannot create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Solver", "Mode", "Test", "Students", "Rooms", "Seats", "Subjects", "Duration(ms)", "Memory(MB)", "CPU(%)", "Result"}
	if err := writer.Write(header); err != nil {
		log.Panicf("cannot write CSV header: %v", err)
	}

	for _, result := range results {
		record := []string{
			solverTypes[result.Solver],
			string(result.Mode),
			filepath.Base(result.Test.Name),
			fmt.Sprintf("%d", result.Test.Students),
			fmt.Sprintf("%d", result.Test.Rooms),
			fmt.Sprintf("%d", result.Test.Seats),
			fmt.Sprintf("%d", result.Test.Subjects),
			fmt.Sprintf("%d", result.Duration),
			fmt.Sprintf("%.1f", result.Memory),
			fmt.Sprintf("%d", result.CpuPercentage),
			resultTypes[result.Result],
		}
		if err := writer.Write(record); err != nil {
			log.Panicf("cannot write CSV record: %v", err)
		}
	}
}

func parseDurationLine(line string) int64 {
	durationStr := strings.Split(line, "(h:mm:ss or m:ss):")[1][1:]
	return parseDuration(durationStr)
}

func parseDuration(durationStr string) int64 {
	parts := strings.Split(durationStr, ":")
	secondsStr := parts[len(parts)-1]
	secondsParts := strings.Split(secondsStr, ".")

	var duration int64
	if len(parts) == 3 { // h:mm:ss
		hours := lo.Must(strconv.Atoi(parts[0]))
		minutes := lo.Must(strconv.Atoi(parts[1]))
		seconds := lo.Must(strconv.Atoi(secondsParts[0]))
		hundredthOfSeconds := lo.Must(strconv.Atoi(secondsParts[1]))
		duration = int64(hours*3600+minutes*60+seconds)*1000 + int64(hundredthOfSeconds*10)
	} else if len(parts) == 2 { // m:ss
		minutes := lo.Must(strconv.Atoi(parts[0]))
		seconds := lo.Must(strconv.Atoi(secondsParts[0]))
		hundredthOfSeconds := lo.Must(strconv.Atoi(secondsParts[1]))
		duration = int64(minutes*60+seconds)*1000 + int64(hundredthOfSeconds*10)
	} else {
		log.Fatalf("unexpected duration format: %v", durationStr)
	}
	return duration
}

func parseMemoryLine(line string) float32 {
	memoryStr := strings.Split(line, ":")[1][1:]
	return float32(lo.Must(strconv.ParseFloat(memoryStr, 32))) / KB
}

func parseCpuPercentageLine(line string) int64 {
	percentageStr := strings.Split(line, ":")[1][1:]
	percentageStr = percentageStr[:len(percentageStr)-1]
	return int64(lo.Must(strconv.Atoi(percentageStr)))
}
