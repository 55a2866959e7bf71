package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/loqalabs/loqa-dictate/internal/audio"
	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/model"
	"github.com/mattn/go-shellwords"
)

var ErrModelNotFound = errors.New("stt: model file not found")

// ExecLoader resolves model ids to files under a directory and hands them to
// an external recogniser command. The command is invoked once per segment.
type ExecLoader struct {
	cmd      []string
	dir      string
	language string
}

type execResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

func NewExecLoader(cfg config.STTConfig, modelDir string) (*ExecLoader, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse stt command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("stt command is empty")
	}
	return &ExecLoader{cmd: args, dir: modelDir, language: cfg.Language}, nil
}

// Load checks that the model file exists. The file is opened by the command
// itself on every call.
func (l *ExecLoader) Load(_ context.Context, id string) (model.Model, error) {
	path, err := l.resolve(id)
	if err != nil {
		return nil, err
	}
	return &execModel{cmd: l.cmd, path: path, language: l.language}, nil
}

func (l *ExecLoader) resolve(id string) (string, error) {
	candidates := []string{id}
	if l.dir != "" && !filepath.IsAbs(id) {
		candidates = []string{filepath.Join(l.dir, id), filepath.Join(l.dir, id+".bin")}
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrModelNotFound, id)
}

type execModel struct {
	cmd      []string
	path     string
	language string
}

func (m *execModel) Transcribe(ctx context.Context, samples []int16, sampleRate int, hints model.Hints) (model.Result, error) {
	file, err := os.CreateTemp("", "loqa_stt_*.wav")
	if err != nil {
		return model.Result{}, fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := audio.EncodeWAV(file, samples, sampleRate); err != nil {
		return model.Result{}, err
	}

	cmdArgs := append([]string{}, m.cmd[1:]...)
	cmdArgs = append(cmdArgs, "--audio", file.Name(), "--model", m.path)
	language := m.language
	if hints.Language != "" {
		language = hints.Language
	}
	if language != "" {
		cmdArgs = append(cmdArgs, "--language", language)
	}
	if hints.InitialPrompt != "" {
		cmdArgs = append(cmdArgs, "--prompt", hints.InitialPrompt)
	}

	command := exec.CommandContext(ctx, m.cmd[0], cmdArgs...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return model.Result{}, fmt.Errorf("stt command failed: %w: %s", err, stderr.String())
	}

	var resp execResult
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return model.Result{}, fmt.Errorf("decode stt response: %w", err)
	}
	return model.Result{Text: resp.Text, Confidence: resp.Confidence}, nil
}

func (m *execModel) Close() error { return nil }
