package command

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"fediclock/internal/logger"
	"fediclock/internal/metrics"
)

// commandRegion matches one {{ name: args }} region. The inner capture is
// trimmed; the full match (including the markers and any padding inside
// them) is what gets replaced in the content.
var commandRegion = regexp.MustCompile(`\{\{\s*(.*?)\s*\}\}`)

type Interpreter struct {
	registry *Registry
	log      *logger.Logger
	metrics  metrics.Provider
}

func NewInterpreter(registry *Registry, log *logger.Logger, metrics metrics.Provider) *Interpreter {
	return &Interpreter{
		registry: registry,
		log:      log,
		metrics:  metrics,
	}
}

// Render evaluates every command region in content left to right and
// returns the content with each region replaced by its result. A failing
// command becomes the empty string; it never aborts the remaining
// commands. Identical regions are evaluated independently, one per
// occurrence.
func (i *Interpreter) Render(ctx context.Context, content string) string {
	matches := commandRegion.FindAllStringSubmatch(content, -1)
	for _, match := range matches {
		region, inner := match[0], match[1]

		result, name, err := i.evaluate(ctx, inner)
		i.metrics.IncrementCommandEvaluations(name, err == nil)
		if err != nil {
			i.log.Warn("Command evaluation failed",
				slog.String("command", name),
				slog.String("error", err.Error()))
			result = ""
		}

		content = strings.Replace(content, region, result, 1)
	}
	return content
}

func (i *Interpreter) evaluate(ctx context.Context, inner string) (string, string, error) {
	name, rawArgs, found := strings.Cut(inner, ":")
	name = strings.TrimSpace(name)
	if !found || name == "" {
		handler, err := i.registry.Resolve(name)
		if err != nil {
			return "", name, err
		}
		result, err := handler(ctx, nil)
		return result, name, err
	}

	var args []string
	for _, arg := range strings.Split(rawArgs, ",") {
		args = append(args, strings.TrimSpace(arg))
	}

	handler, err := i.registry.Resolve(name)
	if err != nil {
		return "", name, err
	}

	result, err := handler(ctx, args)
	return result, name, err
}
