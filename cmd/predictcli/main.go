/*
Package main implements predictcli, an interactive debug shell for the
prediction engine.

predictcli loads the same config.toml as predictd and opens a REPL over
stdin: each line is either a bare utterance (fed to predict against an empty
text_after) or one of the "train "/"quit" commands. It prints the ranked
candidates, marking corrections, and, when enable-debug-information is set,
each candidate's score and edit plan — generalizing the teacher's
interactive CLI shell from raw prefix completion to full predict/train
calls (12).
*/
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/assistext/predict/internal/appwire"
	"github.com/assistext/predict/pkg/config"
	"github.com/assistext/predict/pkg/predict"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var (
	promptStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#9ccfd8"))
	candidateStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0def4"))
	scoreStyle     = lipgloss.NewStyle().Faint(true)
)

func main() {
	configFile := flag.String("config", "config.toml", "Path to config.toml file")
	debugMode := flag.Bool("v", false, "Toggle verbose mode")
	flag.Parse()

	if *debugMode {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.ErrorLevel)
	}

	cfg, err := config.InitConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	p, err := appwire.BuildPredictor(cfg)
	if err != nil {
		log.Fatalf("failed to build predictor: %v", err)
	}
	defer p.Dispose()

	fmt.Println(promptStyle.Render("predictcli") + " — type an utterance, \"train <text>\" or \"quit\"")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("> "))
		if !scanner.Scan() {
			return
		}
		line := strings.TrimRight(scanner.Text(), "\n")
		if line == "quit" || line == "exit" {
			return
		}
		if rest, ok := strings.CutPrefix(line, "train "); ok {
			p.TrainDynamicModel(rest, false)
			fmt.Println(candidateStyle.Render("trained."))
			continue
		}
		runPredict(p, cfg, line)
	}
}

func runPredict(p *predict.Predictor, cfg *config.Config, line string) {
	res := p.Predict(line, "", 10, nil)
	if res == nil || len(res.Candidates) == 0 {
		fmt.Println(candidateStyle.Render("(no candidates)"))
		return
	}
	for i, c := range res.Candidates {
		line := fmt.Sprintf("%2d. %s", i+1, c.Surface)
		if c.IsCorrection {
			line += " [correction]"
		}
		line = candidateStyle.Render(line)
		if cfg.Prediction.EnableDebugInformation {
			line += scoreStyle.Render(fmt.Sprintf("  score=%.4f remove=%d insert=%q space=%v",
				c.Score, c.PreviousCharCountToRemove, c.PredictionToInsert, c.MayInsertSpace))
		}
		fmt.Println(line)
	}
}
