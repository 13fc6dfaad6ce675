package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"sqlquiz/internal/quiz"
)

// Run drives the interactive session: pick a section, answer its questions,
// see the verdicts. Storage and engine failures surface as messages, never as
// a crash of the loop.
func Run(ctx context.Context, tracker *quiz.Tracker, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	for {
		summaries, err := tracker.SectionSummaries(ctx)
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			fmt.Fprintln(out, "No sections available.")
			return nil
		}

		printSections(out, summaries)
		fmt.Fprint(out, "Select a section (number), or q to quit: ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "q" || line == "quit" {
			return nil
		}

		choice, err := strconv.Atoi(line)
		if err != nil || choice < 1 || choice > len(summaries) {
			fmt.Fprintln(out, "Not a valid section number.")
			continue
		}

		sectionID := summaries[choice-1].SectionID
		if err := tracker.SelectSection(ctx, sectionID); err != nil {
			fmt.Fprintf(out, "Could not open section: %v\n", err)
			continue
		}

		if err := runSection(ctx, tracker, reader, out); err != nil {
			return err
		}
	}
}

func runSection(ctx context.Context, tracker *quiz.Tracker, reader *bufio.Reader, out io.Writer) error {
	section := tracker.Selected()
	fmt.Fprintf(out, "\n== %s ==\n", section.Title)

	for !tracker.Completed() {
		question := tracker.CurrentQuestion()
		printQuestion(out, tracker.Index()+1, len(tracker.Questions()), question)
		fmt.Fprint(out, "> ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		answer := strings.TrimSpace(line)

		switch answer {
		case "restart":
			if err := tracker.Restart(ctx, section.SectionID); err != nil {
				fmt.Fprintf(out, "Restart failed: %v\n", err)
				continue
			}
			if err := tracker.SelectSection(ctx, section.SectionID); err != nil {
				return err
			}
			fmt.Fprintln(out, "Progress cleared.")
			continue
		case "back":
			return nil
		case "":
			continue
		}

		result, err := tracker.RecordAnswer(ctx, answer)
		if err != nil {
			fmt.Fprintf(out, "Could not score answer: %v\n", err)
			continue
		}

		if result.Correct {
			fmt.Fprintln(out, "Correct!")
		} else {
			fmt.Fprintf(out, "Incorrect (%s).\n", result.Reason)
		}
		if question.Explanation != "" {
			fmt.Fprintf(out, "  %s\n", question.Explanation)
		}

		tracker.Advance(ctx)
	}

	fmt.Fprintf(out, "\nSection complete. Score: %d/%d\n\n", tracker.Score(), len(tracker.Questions()))
	return nil
}

func printSections(out io.Writer, summaries []quiz.SectionSummary) {
	fmt.Fprintln(out)
	for idx, summary := range summaries {
		fmt.Fprintf(out, "%d. [%s] %s (%d/%d answered)\n",
			idx+1, summary.Kind, summary.Title, summary.Answered, summary.Total)
	}
}

func printQuestion(out io.Writer, number, total int, question *quiz.Question) {
	fmt.Fprintf(out, "\nQ%d/%d: %s\n", number, total, question.Prompt)

	if question.Kind == quiz.QuestionSQL {
		if len(question.Setup) > 0 {
			fmt.Fprintln(out, "Given:")
			for _, statement := range question.Setup {
				fmt.Fprintf(out, "  %s\n", statement)
			}
		}
		fmt.Fprintln(out, "Write a SQL query (one line). Commands: restart, back.")
		return
	}

	for _, option := range question.Options {
		fmt.Fprintf(out, "  - %s\n", option)
	}
	fmt.Fprintln(out, "Type the answer exactly. Commands: restart, back.")
}
