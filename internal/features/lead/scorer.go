package lead

import (
	"context"
	"fmt"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

const (
	scriptTimeout = 500 * time.Millisecond
	maxScore      = 100
)

// Scorer runs tenant lead scoring scripts. A script reads the lead map and
// assigns score, for example:
//
//	score = 10
//	if lead.source == "referral" { score += 40 }
type Scorer struct {
	Timeout time.Duration
}

func NewScorer() *Scorer {
	return &Scorer{Timeout: scriptTimeout}
}

func (s *Scorer) script(src string, input map[string]interface{}) (*tengo.Script, error) {
	script := tengo.NewScript([]byte(src))
	script.SetImports(stdlib.GetModuleMap("text", "math", "times"))
	if err := script.Add("lead", input); err != nil {
		return nil, err
	}
	if err := script.Add("score", 0); err != nil {
		return nil, err
	}
	return script, nil
}

// CheckScript compiles src without running it.
func (s *Scorer) CheckScript(src string) error {
	script, err := s.script(src, map[string]interface{}{})
	if err != nil {
		return err
	}
	if _, err := script.Compile(); err != nil {
		return fmt.Errorf("failed to compile script: %w", err)
	}
	return nil
}

// Score runs src against input and returns the score clamped to 0..100.
func (s *Scorer) Score(ctx context.Context, src string, input map[string]interface{}) (int, error) {
	script, err := s.script(src, input)
	if err != nil {
		return 0, err
	}
	compiled, err := script.Compile()
	if err != nil {
		return 0, fmt.Errorf("failed to compile script: %w", err)
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = scriptTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := compiled.RunContext(ctx); err != nil {
		return 0, fmt.Errorf("failed to run script: %w", err)
	}

	score := compiled.Get("score").Int()
	switch {
	case score < 0:
		score = 0
	case score > maxScore:
		score = maxScore
	}
	return score, nil
}
