package retrieve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	"github.com/XiaoConstantine/prodeval/internal/logger"
	"github.com/XiaoConstantine/prodeval/pkg/benchgen"
	"github.com/XiaoConstantine/prodeval/pkg/catalog"
)

// ErrInvalidTranslation is returned when no attempt produced a valid field list.
var ErrInvalidTranslation = errors.New("language model output is not a valid field list")

// Field names as they appear in the model output, in order.
var translationFields = []string{"brand", "category", "capacity", "olfactory category", "price"}

var (
	capacityFormat = regexp.MustCompile(`^\d+ ml$`)
	priceFormat    = regexp.MustCompile(`^< \d+$`)
)

// TranslatorConfig configures a Translator against an OpenAI-compatible API.
type TranslatorConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
	MaxAttempts int     `mapstructure:"max_attempts"`

	// OlfactoryGroups lists the values the model may choose from.
	OlfactoryGroups []string `mapstructure:"olfactory_groups"`
}

// Translator turns shopper text into a structured query with a language model.
type Translator struct {
	client *openai.Client
	cfg    TranslatorConfig
	log    logger.Logger
}

// NewTranslator creates a translator. MaxAttempts defaults to 3 and the
// olfactory vocabulary to catalog.OlfactoryGroups.
func NewTranslator(cfg TranslatorConfig, log logger.Logger) *Translator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if len(cfg.OlfactoryGroups) == 0 {
		cfg.OlfactoryGroups = catalog.OlfactoryGroups
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &Translator{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
		log:    logger.OrNop(log),
	}
}

func (t *Translator) prompt(text string) string {
	return fmt.Sprintf(`You work on an Italian perfume e-commerce site. Read the shopper query below and fill these fields:
1) brand: the product brand.
2) category: the product category.
3) capacity: the capacity in ml, formatted as "<number> ml".
4) olfactory category: one of %s.
5) price: the maximum price in euro, formatted as "< <number>", without the word euro.

A word can fill only one field; use the most likely one. Leave a field empty when nothing matches.

Example: for "fragranze donna floreale minori di 30 euro" answer
[["brand", ""], ["category", "Fragranze Donna"], ["capacity", ""], ["olfactory category", "Floreale"], ["price", "< 30"]]

Answer with the JSON list only.

Query: %s`, strings.Join(t.cfg.OlfactoryGroups, ", "), text)
}

// Translate asks the model for the fields of text, retrying on invalid output.
func (t *Translator) Translate(ctx context.Context, text string) (benchgen.QuerySpec, error) {
	var lastErr error
	for attempt := 1; attempt <= t.cfg.MaxAttempts; attempt++ {
		resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       t.cfg.Model,
			Temperature: t.cfg.Temperature,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: t.prompt(text)},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("%w: no choices", ErrInvalidTranslation)
			continue
		}

		output := resp.Choices[0].Message.Content
		fields, err := ParseTranslation(output)
		if err != nil {
			lastErr = err
			t.log.Debug("invalid translation, retrying", map[string]interface{}{
				"attempt": attempt,
				"output":  output,
				"error":   err.Error(),
			})
			continue
		}
		return ToQuerySpec(Capitalize(fields)), nil
	}
	return nil, fmt.Errorf("after %d attempts: %w", t.cfg.MaxAttempts, lastErr)
}

// ParseTranslation extracts and validates the five [name, value] pairs from
// model output. Single-quoted lists are accepted.
func ParseTranslation(output string) ([][2]string, error) {
	start := strings.Index(output, "[")
	end := strings.LastIndex(output, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no list found", ErrInvalidTranslation)
	}
	body := output[start : end+1]

	var raw [][]interface{}
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		if err := json.Unmarshal([]byte(strings.ReplaceAll(body, "'", `"`)), &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTranslation, err)
		}
	}
	if len(raw) != len(translationFields) {
		return nil, fmt.Errorf("%w: want %d fields, got %d", ErrInvalidTranslation, len(translationFields), len(raw))
	}

	fields := make([][2]string, 0, len(raw))
	for _, pair := range raw {
		if len(pair) != 2 {
			return nil, fmt.Errorf("%w: field %v is not a pair", ErrInvalidTranslation, pair)
		}
		name, ok := pair[0].(string)
		if !ok {
			return nil, fmt.Errorf("%w: field name %v is not a string", ErrInvalidTranslation, pair[0])
		}
		value, ok := pair[1].(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s value %v is not a string", ErrInvalidTranslation, name, pair[1])
		}
		value = strings.TrimSpace(value)
		switch name {
		case "capacity":
			if value != "" && !capacityFormat.MatchString(value) {
				return nil, fmt.Errorf("%w: capacity %q", ErrInvalidTranslation, value)
			}
		case "price":
			if value != "" && !priceFormat.MatchString(value) {
				return nil, fmt.Errorf("%w: price %q", ErrInvalidTranslation, value)
			}
		}
		fields = append(fields, [2]string{name, value})
	}
	return fields, nil
}

// Capitalize title-cases every value except capacity, which is lower-cased.
func Capitalize(fields [][2]string) [][2]string {
	out := make([][2]string, len(fields))
	for i, f := range fields {
		if f[0] == "capacity" {
			out[i] = [2]string{f[0], strings.ToLower(f[1])}
			continue
		}
		words := strings.Fields(f[1])
		for j, w := range words {
			words[j] = capitalizeWord(w)
		}
		out[i] = [2]string{f[0], strings.Join(words, " ")}
	}
	return out
}

func capitalizeWord(w string) string {
	r, size := utf8.DecodeRuneInString(w)
	if r == utf8.RuneError {
		return w
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
}

// ToQuerySpec keeps the non-empty fields, renaming "olfactory category" and
// normalizing "< 30" to "<30".
func ToQuerySpec(fields [][2]string) benchgen.QuerySpec {
	q := make(benchgen.QuerySpec)
	for _, f := range fields {
		name, value := f[0], f[1]
		if value == "" {
			continue
		}
		switch name {
		case "olfactory category":
			q[benchgen.AttrOlfactory] = value
		case "price":
			q[benchgen.AttrPrice] = "<" + strings.TrimSpace(strings.TrimPrefix(value, "<"))
		case benchgen.AttrBrand, benchgen.AttrCategory, benchgen.AttrCapacity:
			q[name] = value
		}
	}
	return q
}
