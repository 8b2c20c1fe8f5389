package command

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"strings"

	"fediclock/internal/custom_errors"
	"fediclock/internal/logger"
	list_repository "fediclock/internal/repository/list"
)

// NewDefaultRegistry wires the full command set: list_random, list_static,
// media_random backed by the list repository, dynamic backed by an HTTP
// client with a bounded timeout.
func NewDefaultRegistry(lists list_repository.Repository, client *http.Client, log *logger.Logger) *Registry {
	listProvider := &ListProvider{lists: lists, log: log}
	dynamicProvider := &DynamicProvider{client: client, log: log}

	registry := NewRegistry()
	registry.Register("list_random", listProvider.Random)
	registry.Register("list_static", listProvider.Static)
	// media_random shares list_random's selection; the name exists so
	// templates can mark intent when the list holds media references.
	registry.Register("media_random", listProvider.Random)
	registry.Register("dynamic", dynamicProvider.Fetch)
	return registry
}

type ListProvider struct {
	lists list_repository.Repository
	log   *logger.Logger
}

func (p *ListProvider) Random(ctx context.Context, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("list_random expects 1 argument, got %d", len(args))
	}
	listID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid list id %q: %w", args[0], err)
	}

	if _, err := p.lists.GetByID(ctx, listID); err != nil {
		return "", err
	}
	items, err := p.lists.GetItems(ctx, listID)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", fmt.Errorf("%w: list %d", custom_errors.ErrListEmpty, listID)
	}

	item := items[rand.Intn(len(items))]
	p.log.Debug("Random list item selected",
		slog.Int64("list_id", listID),
		slog.Int64("item_id", item.ItemID))
	return item.Content, nil
}

func (p *ListProvider) Static(ctx context.Context, args []string) (string, error) {
	if len(args) != 2 {
		return "", fmt.Errorf("list_static expects 2 arguments, got %d", len(args))
	}
	listID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid list id %q: %w", args[0], err)
	}
	itemID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid item id %q: %w", args[1], err)
	}

	if _, err := p.lists.GetByID(ctx, listID); err != nil {
		return "", err
	}
	item, err := p.lists.GetItem(ctx, listID, itemID)
	if err != nil {
		return "", err
	}
	return item.Content, nil
}

type DynamicProvider struct {
	client *http.Client
	log    *logger.Logger
}

// Fetch issues a GET to args[0] and walks the JSON body along the dotted
// key in args[1]. Only a 200 response is accepted.
func (p *DynamicProvider) Fetch(ctx context.Context, args []string) (string, error) {
	if len(args) != 2 {
		return "", fmt.Errorf("dynamic expects 2 arguments, got %d", len(args))
	}
	endpoint, dottedKey := args[0], args[1]

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("invalid dynamic endpoint %q: %w", endpoint, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("dynamic endpoint %q: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("dynamic endpoint %q returned status %d", endpoint, resp.StatusCode)
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	var body any
	if err := decoder.Decode(&body); err != nil {
		return "", fmt.Errorf("dynamic endpoint %q: decoding body: %w", endpoint, err)
	}

	value, err := walkDottedKey(body, dottedKey)
	if err != nil {
		return "", fmt.Errorf("dynamic endpoint %q: %w", endpoint, err)
	}

	p.log.Debug("Dynamic value resolved",
		slog.String("endpoint", endpoint),
		slog.String("key", dottedKey))
	return stringify(value), nil
}

func walkDottedKey(value any, dottedKey string) (any, error) {
	for _, segment := range strings.Split(dottedKey, ".") {
		object, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("key segment %q does not address an object", segment)
		}
		value, ok = object[segment]
		if !ok {
			return nil, fmt.Errorf("key segment %q not present in response", segment)
		}
	}
	return value, nil
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
