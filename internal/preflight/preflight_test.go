package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"smsdash/internal/config"
)

// MockRunner mocks command execution
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	ret := m.Called(name, args)
	var out []byte
	if b := ret.Get(0); b != nil {
		out = b.([]byte)
	}
	return out, ret.Error(1)
}

func (m *MockRunner) LookPath(file string) (string, error) {
	ret := m.Called(file)
	return ret.String(0), ret.Error(1)
}

const pythonPath = "/usr/bin/python"

func newTestChecker(r Runner, dep config.DependencyConfig) *Checker {
	return NewChecker(r, config.InterpreterConfig{Command: "python"}, dep)
}

func TestCheckInterpreter_Found(t *testing.T) {
	r := &MockRunner{}
	r.On("LookPath", "python").Return(pythonPath, nil)
	r.On("Run", pythonPath, []string{"--version"}).Return([]byte("Python 3.12.1\n"), nil)

	interp, err := newTestChecker(r, config.DependencyConfig{}).CheckInterpreter(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "python", interp.Command)
	assert.Equal(t, pythonPath, interp.Path)
	assert.Equal(t, "Python 3.12.1", interp.Version)
	r.AssertExpectations(t)
}

func TestCheckInterpreter_NotOnPath(t *testing.T) {
	r := &MockRunner{}
	r.On("LookPath", "python").Return("", errors.New("executable file not found in $PATH"))

	_, err := newTestChecker(r, config.DependencyConfig{}).CheckInterpreter(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInterpreterNotFound)
	assert.Contains(t, err.Error(), "python is not on PATH")
	r.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestCheckInterpreter_VersionFails(t *testing.T) {
	// The Windows store alias resolves on PATH but exits non-zero.
	r := &MockRunner{}
	r.On("LookPath", "python").Return(pythonPath, nil)
	r.On("Run", pythonPath, []string{"--version"}).Return(nil, errors.New("exit status 9009"))

	_, err := newTestChecker(r, config.DependencyConfig{}).CheckInterpreter(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInterpreterNotFound)
	assert.Contains(t, err.Error(), "exit status 9009")
}

func TestCheckInterpreter_CustomVersionArgs(t *testing.T) {
	r := &MockRunner{}
	r.On("LookPath", "py").Return(`C:\Windows\py.exe`, nil)
	r.On("Run", `C:\Windows\py.exe`, []string{"-3", "--version"}).Return([]byte("Python 3.11.4"), nil)

	c := NewChecker(r, config.InterpreterConfig{Command: "py", VersionArgs: []string{"-3", "--version"}}, config.DependencyConfig{})
	interp, err := c.CheckInterpreter(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Python 3.11.4", interp.Version)
}

func TestCheckDependency(t *testing.T) {
	tests := []struct {
		name     string
		importErr error
		wantErr  bool
	}{
		{"installed", nil, false},
		{"missing", errors.New("ModuleNotFoundError"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &MockRunner{}
			r.On("Run", pythonPath, []string{"-c", "import flask"}).Return(nil, tt.importErr)

			err := newTestChecker(r, config.DependencyConfig{}).CheckDependency(context.Background(), Interpreter{Path: pythonPath})

			if tt.wantErr {
				assert.ErrorIs(t, err, ErrDependencyMissing)
			} else {
				assert.NoError(t, err)
			}
			// only the import check, never pip
			r.AssertNumberOfCalls(t, "Run", 1)
		})
	}
}

func TestEnsureDependency_AlreadyInstalled(t *testing.T) {
	r := &MockRunner{}
	r.On("Run", pythonPath, []string{"-c", "import flask"}).Return(nil, nil)

	installed, err := newTestChecker(r, config.DependencyConfig{}).EnsureDependency(context.Background(), Interpreter{Path: pythonPath})

	require.NoError(t, err)
	assert.False(t, installed)
	r.AssertNumberOfCalls(t, "Run", 1)
}

func TestEnsureDependency_InstallsMissing(t *testing.T) {
	r := &MockRunner{}
	r.On("Run", pythonPath, []string{"-c", "import flask"}).Return(nil, errors.New("ModuleNotFoundError")).Once()
	r.On("Run", pythonPath, []string{"-m", "pip", "install", "flask", "--quiet"}).Return([]byte("Successfully installed flask"), nil).Once()
	r.On("Run", pythonPath, []string{"-c", "import flask"}).Return(nil, nil).Once()

	c := newTestChecker(r, config.DependencyConfig{PipArgs: []string{"--quiet"}})
	installed, err := c.EnsureDependency(context.Background(), Interpreter{Path: pythonPath})

	require.NoError(t, err)
	assert.True(t, installed)
	r.AssertExpectations(t)
}

func TestEnsureDependency_PackageDiffersFromModule(t *testing.T) {
	r := &MockRunner{}
	r.On("Run", pythonPath, []string{"-c", "import yaml"}).Return(nil, errors.New("ModuleNotFoundError")).Once()
	r.On("Run", pythonPath, []string{"-m", "pip", "install", "PyYAML"}).Return(nil, nil).Once()
	r.On("Run", pythonPath, []string{"-c", "import yaml"}).Return(nil, nil).Once()

	c := newTestChecker(r, config.DependencyConfig{Module: "yaml", Package: "PyYAML"})
	installed, err := c.EnsureDependency(context.Background(), Interpreter{Path: pythonPath})

	require.NoError(t, err)
	assert.True(t, installed)
	r.AssertExpectations(t)
}

func TestEnsureDependency_InstallFails(t *testing.T) {
	r := &MockRunner{}
	r.On("Run", pythonPath, []string{"-c", "import flask"}).Return(nil, errors.New("ModuleNotFoundError"))
	r.On("Run", pythonPath, []string{"-m", "pip", "install", "flask"}).Return([]byte("No matching distribution"), errors.New("exit status 1"))

	installed, err := newTestChecker(r, config.DependencyConfig{}).EnsureDependency(context.Background(), Interpreter{Path: pythonPath})

	require.Error(t, err)
	assert.False(t, installed)
	assert.ErrorIs(t, err, ErrDependencyMissing)
	r.AssertNumberOfCalls(t, "Run", 2)
}

func TestEnsureDependency_StillMissingAfterInstall(t *testing.T) {
	r := &MockRunner{}
	r.On("Run", pythonPath, []string{"-c", "import flask"}).Return(nil, errors.New("ModuleNotFoundError"))
	r.On("Run", pythonPath, []string{"-m", "pip", "install", "flask"}).Return(nil, nil)

	installed, err := newTestChecker(r, config.DependencyConfig{}).EnsureDependency(context.Background(), Interpreter{Path: pythonPath})

	require.Error(t, err)
	assert.True(t, installed)
	assert.ErrorIs(t, err, ErrDependencyMissing)
	// import, install, import again: no retry loop
	r.AssertNumberOfCalls(t, "Run", 3)
}

func TestEnsureDependency_SkipInstall(t *testing.T) {
	r := &MockRunner{}
	r.On("Run", pythonPath, []string{"-c", "import flask"}).Return(nil, errors.New("ModuleNotFoundError"))

	c := newTestChecker(r, config.DependencyConfig{SkipInstall: true})
	installed, err := c.EnsureDependency(context.Background(), Interpreter{Path: pythonPath})

	require.Error(t, err)
	assert.False(t, installed)
	assert.ErrorIs(t, err, ErrDependencyMissing)
	assert.Contains(t, err.Error(), "installation is disabled")
	r.AssertNumberOfCalls(t, "Run", 1)
}

func TestEnsureLogsDir(t *testing.T) {
	t.Run("creates missing directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "logs")

		created, err := EnsureLogsDir(dir)

		require.NoError(t, err)
		assert.True(t, created)
		assert.DirExists(t, dir)
	})

	t.Run("creates nested directories", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "dashboard", "logs")

		created, err := EnsureLogsDir(dir)

		require.NoError(t, err)
		assert.True(t, created)
		assert.DirExists(t, dir)
	})

	t.Run("existing directory is left alone", func(t *testing.T) {
		dir := t.TempDir()
		marker := filepath.Join(dir, "sms_log_20250101_090000.json")
		require.NoError(t, os.WriteFile(marker, []byte("[]"), 0o644))

		created, err := EnsureLogsDir(dir)

		require.NoError(t, err)
		assert.False(t, created)
		assert.FileExists(t, marker)
	})

	t.Run("file in the way", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		created, err := EnsureLogsDir(path)

		require.Error(t, err)
		assert.False(t, created)
		assert.Contains(t, err.Error(), "not a directory")
	})
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "Python 3.12.1", firstLine([]byte("Python 3.12.1\r\n")))
	assert.Equal(t, "a", firstLine([]byte("\n a \nb\n")))
	assert.Equal(t, "", firstLine(nil))
}
