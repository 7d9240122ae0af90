package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestSystemInstruction_Default(t *testing.T) {
	var p *Personality
	assert.Equal(t, DefaultSystemInstruction, p.SystemInstruction())

	assert.Nil(t, LoadPersonality(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Nil(t, LoadPersonality(""))
}

func TestSystemInstruction_FromFile(t *testing.T) {
	path := writeFile(t, "llm_personality.yaml", `role: 星読みの案内人
tone:
  - 優しく
  - 穏やかな
avoid:
  - 断定
  - 恐怖を煽る表現
output:
  schema:
    summary: 要約1文
    advice: アドバイス1文
`)
	p := LoadPersonality(path)
	require.NotNil(t, p)

	want := "あなたは星読みの案内人です。" +
		"優しく、穏やかなトーンで書いてください。" +
		"以下を避けてください: 断定、恐怖を煽る表現。" +
		`必ず次の JSON 形式のみで応答してください（他に説明は不要）: {"summary":"要約1文","advice":"アドバイス1文"}`
	assert.Equal(t, want, p.SystemInstruction())
}

func TestSystemInstruction_NonStrict(t *testing.T) {
	path := writeFile(t, "p.yaml", `output:
  strict: false
  schema:
    advice: a
    summary: s
`)
	p := LoadPersonality(path)
	require.NotNil(t, p)
	assert.Equal(t, `次の JSON 形式で応答してください: {"advice":"a","summary":"s"}`, p.SystemInstruction())
}

func TestSystemInstruction_EmptyFileUsesDefault(t *testing.T) {
	p := LoadPersonality(writeFile(t, "p.yaml", "{}\n"))
	require.NotNil(t, p)
	assert.Equal(t, DefaultSystemInstruction, p.SystemInstruction())
}

func TestSystemInstruction_UnparseableFile(t *testing.T) {
	assert.Nil(t, LoadPersonality(writeFile(t, "p.yaml", "role: [broken")))
}

func TestLoadEvalProfile(t *testing.T) {
	t.Run("missing file gives defaults", func(t *testing.T) {
		p := LoadEvalProfile(filepath.Join(t.TempDir(), "none.yaml"))
		assert.Equal(t, DefaultEvalProfile(), p)
	})

	t.Run("file overrides fields", func(t *testing.T) {
		p := LoadEvalProfile(writeFile(t, "llm_eval.yaml", "profile: 朝の占い\npass_score: 3\n"))
		assert.Equal(t, "朝の占い", p.Profile)
		assert.Equal(t, 3, p.PassScore)
		assert.Equal(t, DefaultEvalProfile().Tone, p.Tone)
	})

	t.Run("out of range pass score is reset", func(t *testing.T) {
		p := LoadEvalProfile(writeFile(t, "llm_eval.yaml", "pass_score: 9\n"))
		assert.Equal(t, 4, p.PassScore)
	})
}
