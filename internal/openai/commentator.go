package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"volbot/internal/volatility"
)

const systemPrompt = `You are a concise volatility analyst. You receive statistics comparing an implied volatility index with the volatility later realized by its underlying.
Write at most five short bullet points, text only:
- how often implied volatility overestimated realized volatility and what that says about the variance risk premium
- the average and extreme gaps, in volatility points
- whether the most recent readings are rich or cheap versus history
Do not give trading advice and do not invent numbers that are not in the input.`

type Commentator struct {
	cli   oa.Client
	model string
}

func NewCommentator(apiKey, model string) *Commentator {
	client := oa.NewClient(option.WithAPIKey(apiKey))
	if model == "" {
		model = "gpt-4"
	}
	return &Commentator{cli: client, model: model}
}

func (c *Commentator) Comment(ctx context.Context, cmp *volatility.Comparison) (string, error) {
	resp, err := c.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: oa.ChatModel(c.model),
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(systemPrompt),
			oa.UserMessage(buildPrompt(cmp)),
		},
		MaxTokens: oa.Int(400),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// recentPoints is how many of the latest aligned readings go into the prompt.
const recentPoints = 5

// buildPrompt states the run's numbers in volatility points so the model has nothing to guess.
func buildPrompt(cmp *volatility.Comparison) string {
	p := cmp.Params
	var b strings.Builder
	fmt.Fprintf(&b, "Implied index: %s. Underlying: %s. Realized window: %d trading days, lag %d.\n",
		p.VolIndex, p.Underlying, p.RollingWindow, p.Lag)
	fmt.Fprintf(&b, "Overestimated %d of %d days (%.2f%%), underestimated %d.\n",
		cmp.Summary.Over, cmp.Summary.Total, cmp.Summary.Rate*100, cmp.Summary.Under)

	vals := cmp.Diff.Values()
	if len(vals) > 0 {
		sum, lo, hi := 0.0, vals[0], vals[0]
		for _, v := range vals {
			sum += v
			lo = min(lo, v)
			hi = max(hi, v)
		}
		fmt.Fprintf(&b, "Gap implied minus realized (vol points): mean %.2f, min %.2f, max %.2f.\n",
			sum/float64(len(vals))*100, lo*100, hi*100)
	}

	obs := cmp.Diff.Obs
	if len(obs) > recentPoints {
		obs = obs[len(obs)-recentPoints:]
	}
	if len(obs) > 0 {
		b.WriteString("Latest readings:\n")
	}
	for _, o := range obs {
		iv, _ := cmp.Implied.At(o.Date)
		rv, _ := cmp.Actual.At(o.Date)
		fmt.Fprintf(&b, "%s implied %.2f realized %.2f gap %.2f\n",
			o.Date.Format(time.DateOnly), iv.Value*100, rv.Value*100, o.Value*100)
	}
	return strings.TrimRight(b.String(), "\n")
}
