package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Nyukimin/daily-zodiac/internal/logging"
)

// DefaultSystemInstruction is used when no personality file is present
// or the file yields no usable parts.
const DefaultSystemInstruction = "あなたは占いの文章を書くアシスタントです。" +
	"娯楽として優しく、煽らず、断定を避けるトーンで書いてください。" +
	"必ず次の JSON 形式のみで応答してください（他に説明は不要）: " +
	`{"summary":"要約1文","advice":"アドバイス1文"}`

// Personality is the writer persona (config/llm_personality.yaml).
type Personality struct {
	Role   string            `yaml:"role"`
	Tone   []string          `yaml:"tone"`
	Avoid  []string          `yaml:"avoid"`
	Output PersonalityOutput `yaml:"output"`
}

// PersonalityOutput describes the response format requested from the model.
// Schema keeps its YAML node so key order survives into the instruction.
type PersonalityOutput struct {
	Schema yaml.Node `yaml:"schema"`
	Strict *bool     `yaml:"strict"`
}

// LoadPersonality reads a personality file. A missing or unparseable file
// returns nil; the caller then uses DefaultSystemInstruction.
func LoadPersonality(path string) *Personality {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.BootWarn("Cannot read personality %s: %v", path, err)
		}
		return nil
	}
	var p Personality
	if err := yaml.Unmarshal(data, &p); err != nil {
		logging.BootWarn("Cannot parse personality %s: %v", path, err)
		return nil
	}
	return &p
}

// SystemInstruction assembles the system prompt from the persona.
func (p *Personality) SystemInstruction() string {
	if p == nil {
		return DefaultSystemInstruction
	}

	var b strings.Builder
	if p.Role != "" {
		fmt.Fprintf(&b, "あなたは%sです。", p.Role)
	}
	if len(p.Tone) > 0 {
		fmt.Fprintf(&b, "%sトーンで書いてください。", strings.Join(p.Tone, "、"))
	}
	if len(p.Avoid) > 0 {
		fmt.Fprintf(&b, "以下を避けてください: %s。", strings.Join(p.Avoid, "、"))
	}

	if p.Output.Schema.Kind == yaml.MappingNode {
		schema, err := nodeJSON(&p.Output.Schema)
		if err != nil {
			logging.BootWarn("Ignoring personality output schema: %v", err)
		} else if p.Output.Strict == nil || *p.Output.Strict {
			fmt.Fprintf(&b, "必ず次の JSON 形式のみで応答してください（他に説明は不要）: %s", schema)
		} else {
			fmt.Fprintf(&b, "次の JSON 形式で応答してください: %s", schema)
		}
	}

	if b.Len() == 0 {
		return DefaultSystemInstruction
	}
	return b.String()
}

// nodeJSON renders a YAML node as compact JSON, keeping mapping key order.
func nodeJSON(n *yaml.Node) (string, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return "null", nil
		}
		return nodeJSON(n.Content[0])
	case yaml.AliasNode:
		return nodeJSON(n.Alias)
	case yaml.MappingNode:
		parts := make([]string, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, err := scalarJSON(n.Content[i].Value)
			if err != nil {
				return "", err
			}
			val, err := nodeJSON(n.Content[i+1])
			if err != nil {
				return "", err
			}
			parts = append(parts, key+":"+val)
		}
		return "{" + strings.Join(parts, ",") + "}", nil
	case yaml.SequenceNode:
		parts := make([]string, 0, len(n.Content))
		for _, c := range n.Content {
			val, err := nodeJSON(c)
			if err != nil {
				return "", err
			}
			parts = append(parts, val)
		}
		return "[" + strings.Join(parts, ",") + "]", nil
	default:
		var v interface{}
		if err := n.Decode(&v); err != nil {
			return "", err
		}
		return scalarJSON(v)
	}
}

func scalarJSON(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// EvalProfile is the evaluator's rubric source (config/llm_eval.yaml).
type EvalProfile struct {
	Profile   string   `yaml:"profile"`
	Tone      []string `yaml:"tone"`
	Avoid     []string `yaml:"avoid"`
	Advice    []string `yaml:"advice"`
	PassScore int      `yaml:"pass_score"`
}

// DefaultEvalProfile returns the rubric used without a profile file.
func DefaultEvalProfile() *EvalProfile {
	return &EvalProfile{
		Profile:   "娯楽として読む日本語の星座占い",
		Tone:      []string{"優しい", "前向き", "断定しない"},
		Avoid:     []string{"不安を煽る表現", "医療・金融・法律の断定的助言", "特定の人物や団体への言及"},
		Advice:    []string{"今日すぐ試せる具体的な行動", "一文で完結している"},
		PassScore: 4,
	}
}

// LoadEvalProfile reads an evaluation profile; missing fields keep defaults.
func LoadEvalProfile(path string) *EvalProfile {
	p := DefaultEvalProfile()
	if path == "" {
		return p
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.BootWarn("Cannot read eval profile %s: %v", path, err)
		}
		return p
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		logging.BootWarn("Cannot parse eval profile %s: %v", path, err)
		return DefaultEvalProfile()
	}
	if p.PassScore < 0 || p.PassScore > 5 {
		logging.BootWarn("eval profile pass_score %d out of range, using 4", p.PassScore)
		p.PassScore = 4
	}
	return p
}
