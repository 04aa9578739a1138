// Package driver runs the compilation pipeline: decode a typed contract,
// lower it to the mid-level module, optionally run the target lowering
// pass, verify, and serialize.
package driver

import (
	"fmt"

	"mica/internal/project"
)

// Target selects the lowering backend.
type Target uint8

const (
	// TargetEraVM is the only backend wired in.
	TargetEraVM Target = iota
)

// Stage selects which pipeline stage to materialize.
type Stage uint8

const (
	// StageLowered runs the full pipeline through target lowering.
	StageLowered Stage = iota
	// StageMid stops after AST lowering and dumps the mid-level module.
	StageMid
)

// Format selects the output serialization.
type Format uint8

const (
	FormatText Format = iota
	FormatBinary
)

// Job is one compilation configuration. The zero value is the default:
// EraVM target, full lowering, textual output, no location info.
type Job struct {
	Target    Target
	Stage     Stage
	Format    Format
	DebugInfo bool
}

// ParseTarget maps a target name to its selector; empty selects the
// default.
func ParseTarget(s string) (Target, error) {
	switch s {
	case "", "eravm":
		return TargetEraVM, nil
	}
	return 0, fmt.Errorf("unknown target %q (supported: eravm)", s)
}

// ParseStage maps a stage name to its selector; empty selects the default.
func ParseStage(s string) (Stage, error) {
	switch s {
	case "", "lowered":
		return StageLowered, nil
	case "mid":
		return StageMid, nil
	}
	return 0, fmt.Errorf("unknown stage %q (supported: mid, lowered)", s)
}

// ParseFormat maps a format name to its selector; empty selects the
// default.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "text":
		return FormatText, nil
	case "binary":
		return FormatBinary, nil
	}
	return 0, fmt.Errorf("unknown format %q (supported: text, binary)", s)
}

// JobFromConfig builds a job from manifest settings and checks it.
func JobFromConfig(cfg project.BuildConfig) (Job, error) {
	var (
		job Job
		err error
	)
	if job.Target, err = ParseTarget(cfg.Target); err != nil {
		return Job{}, err
	}
	if job.Stage, err = ParseStage(cfg.Stage); err != nil {
		return Job{}, err
	}
	if job.Format, err = ParseFormat(cfg.Format); err != nil {
		return Job{}, err
	}
	job.DebugInfo = cfg.DebugInfo
	return job, job.Check()
}

// Check rejects configurations the pipeline cannot serve.
func (j Job) Check() error {
	if j.Format == FormatBinary && j.Stage != StageLowered {
		return fmt.Errorf("binary output requires the lowered stage")
	}
	if j.Format == FormatBinary && j.DebugInfo {
		return fmt.Errorf("binary output carries no location info; drop debug-info or use text")
	}
	return nil
}
