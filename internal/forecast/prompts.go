package forecast

import (
	"fmt"
	"strings"

	"github.com/Nyukimin/daily-zodiac/internal/chart"
	"github.com/Nyukimin/daily-zodiac/internal/config"
	"github.com/Nyukimin/daily-zodiac/internal/types"
)

// BuildPrompt returns the user prompt for one scope. A nil chart yields a
// date-only prompt without placement lines.
func BuildPrompt(dateKey string, data *chart.Data, scope types.Scope) string {
	var b strings.Builder
	if data != nil {
		fmt.Fprintf(&b, "今日（%s）の天体配置です。\n", dateKey)
		fmt.Fprintf(&b, "太陽: %s、月: %s、月相: %s\n", data.SunSign, data.MoonSign, data.MoonPhase)
		fmt.Fprintf(&b, "惑星: %s\n\n", planetsJSON(data))
	} else {
		fmt.Fprintf(&b, "今日は%sです。天体配置のデータはありません。\n\n", dateKey)
	}

	sign, isSign := scope.Sign()
	switch {
	case !isSign && data != nil:
		b.WriteString("この日の全体の雰囲気・エネルギーに基づいて、今日の占い（要約・アドバイス）を JSON で出力してください。")
	case !isSign:
		b.WriteString("この日の全体の雰囲気に合った、今日の占い（要約・アドバイス）を JSON で出力してください。")
	case data != nil:
		fmt.Fprintf(&b, "%s（太陽が%sにある人）向けの今日の占い（要約・アドバイス）を、上記の天体配置を踏まえて JSON で出力してください。", sign.JA(), sign)
	default:
		fmt.Fprintf(&b, "%s（太陽が%sにある人）向けの今日の占い（要約・アドバイス）を JSON で出力してください。", sign.JA(), sign)
	}
	return b.String()
}

// planetsJSON renders placements as a JSON object in body order.
func planetsJSON(data *chart.Data) string {
	parts := make([]string, 0, len(data.Planets))
	for _, p := range data.Placements() {
		parts = append(parts, fmt.Sprintf("%q: %q", p.Body, string(p.Sign)))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// evalSystemPrompt frames the evaluator call.
const evalSystemPrompt = "あなたは星座占いの文章を審査する編集者です。" +
	"必ず次の JSON 形式のみで応答してください（他に説明は不要）: " +
	`{"pass":true,"score":0,"reason_summary":"要約への講評","reason_advice":"アドバイスへの講評"}`

// BuildEvalPrompt returns the rubric prompt for one candidate.
func BuildEvalPrompt(profile *config.EvalProfile, scope types.Scope, block types.ForecastBlock) string {
	if profile == nil {
		profile = config.DefaultEvalProfile()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "次の「%s」の文章（%s）を審査してください。\n", profile.Profile, scope.Label())
	if len(profile.Tone) > 0 {
		fmt.Fprintf(&b, "求めるトーン: %s\n", strings.Join(profile.Tone, "、"))
	}
	if len(profile.Avoid) > 0 {
		fmt.Fprintf(&b, "避けるべき内容: %s\n", strings.Join(profile.Avoid, "、"))
	}
	if len(profile.Advice) > 0 {
		fmt.Fprintf(&b, "アドバイスの条件: %s\n", strings.Join(profile.Advice, "、"))
	}
	fmt.Fprintf(&b, "score は 0 から 5 の整数で、%d 以上なら pass を true にしてください。\n\n", profile.PassScore)
	fmt.Fprintf(&b, "要約: %s\nアドバイス: %s\n", block.Summary, block.Advice)
	return b.String()
}
