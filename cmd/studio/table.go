package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/creator-studio/internal/pipeline"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func renderStages(stages []pipeline.Stage) string {
	rows := make([][]string, 0, len(stages))
	for _, s := range stages {
		rows = append(rows, []string{s.Name, stageLabel(s.Status), formatEstimate(s.Estimate), s.Message})
	}
	return renderTable(
		[]string{"Stage", "Status", "Estimate", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func stageLabel(s pipeline.StageStatus) string {
	switch s {
	case pipeline.StatusCompleted:
		return "done"
	case pipeline.StatusFailed:
		return "failed"
	case pipeline.StatusActive:
		return "running"
	default:
		return "waiting"
	}
}

func formatEstimate(d time.Duration) string {
	return fmt.Sprintf("%ds", int(d.Round(time.Second)/time.Second))
}

func progressLine(stages []pipeline.Stage) string {
	var active []string
	for _, s := range stages {
		if s.Status == pipeline.StatusActive {
			active = append(active, s.Name)
		}
	}
	line := fmt.Sprintf("%3d%%  %s", pipeline.Progress(stages), pipeline.FormatRemaining(pipeline.Remaining(stages)))
	if len(active) > 0 {
		line += "  [" + strings.Join(active, ", ") + "]"
	}
	return line
}
