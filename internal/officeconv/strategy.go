package officeconv

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/signage-workspace/internal/procexec"
	"github.com/pdiddy/signage-workspace/pkg/types"
)

// expectedPDF is where every engine is asked to write its output.
func expectedPDF(docPath, outDir string) string {
	base := strings.TrimSuffix(filepath.Base(docPath), filepath.Ext(docPath))
	return filepath.Join(outDir, base+".pdf")
}

// attempt tracks the expected output of one engine run so that a failed run
// never leaves a partial PDF behind.
type attempt struct {
	path    string
	existed bool
	started time.Time
}

func startAttempt(docPath, outDir string) attempt {
	a := attempt{path: expectedPDF(docPath, outDir), started: time.Now()}
	if _, err := os.Stat(a.path); err == nil {
		a.existed = true
	}
	return a
}

// produced reports whether the run wrote the expected PDF. A file that was
// already present counts only if it was rewritten during the run.
func (a attempt) produced() bool {
	info, err := os.Stat(a.path)
	if err != nil || info.Size() == 0 {
		return false
	}
	if a.existed {
		return !info.ModTime().Before(a.started.Truncate(time.Second))
	}
	return true
}

// discard removes output the failed run created.
func (a attempt) discard() {
	if !a.existed {
		_ = os.Remove(a.path)
	}
}

// runFailure folds the engine's output into its error.
func runFailure(name string, out []byte, err error) error {
	if msg := strings.TrimSpace(string(out)); msg != "" {
		return fmt.Errorf("%s: %w: %s", name, err, types.Truncate(msg))
	}
	return fmt.Errorf("%s: %w", name, err)
}

// headlessSuite drives LibreOffice or OpenOffice in headless mode.
type headlessSuite struct {
	cand    Candidate
	exec    procexec.Executor
	timeout time.Duration
}

func (s *headlessSuite) Name() string { return s.cand.Name }
func (s *headlessSuite) Class() Class { return s.cand.Class }

func (s *headlessSuite) TryConvert(ctx context.Context, docPath, outDir string) (string, error) {
	bin, err := s.exec.LookPath(s.cand.Path)
	if err != nil {
		return "", fmt.Errorf("%s: %w", s.cand.Name, errNotInstalled)
	}

	// A private profile lets conversions run while a desktop instance of
	// the suite is open, and keeps concurrent conversions apart.
	profile, err := os.MkdirTemp("", "signage-soffice-*")
	if err != nil {
		return "", fmt.Errorf("creating suite profile dir: %w", err)
	}
	defer os.RemoveAll(profile)

	a := startAttempt(docPath, outDir)
	out, err := s.exec.Run(ctx, procexec.Command{
		Name: bin,
		Args: []string{
			"-env:UserInstallation=" + fileURL(profile),
			"--headless",
			"--convert-to", "pdf",
			"--outdir", outDir,
			docPath,
		},
		Timeout: s.timeout,
	})
	if err != nil {
		a.discard()
		return "", runFailure(s.cand.Name, out, err)
	}
	if !a.produced() {
		a.discard()
		return "", fmt.Errorf("%s exited successfully but wrote no %s", s.cand.Name, filepath.Base(a.path))
	}
	return a.path, nil
}

// fileURL renders dir as a file:// URL the suite accepts on every platform.
func fileURL(dir string) string {
	p := filepath.ToSlash(dir)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p}
	return u.String()
}

const powershellBridge = "powershell"

// nativeAutomation exports a document through the installed office
// application, scripted via PowerShell COM.
type nativeAutomation struct {
	kind    AppKind
	bridge  string
	exec    procexec.Executor
	timeout time.Duration
}

func (s *nativeAutomation) Name() string { return string(s.kind) + "-automation" }
func (s *nativeAutomation) Class() Class { return ClassNativeAutomation }

func (s *nativeAutomation) TryConvert(ctx context.Context, docPath, outDir string) (string, error) {
	bridge, err := s.exec.LookPath(s.bridge)
	if err != nil {
		return "", fmt.Errorf("%s: %s not found: %w", s.Name(), s.bridge, errBridgeUnavailable)
	}

	absDoc, err := filepath.Abs(docPath)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", docPath, err)
	}
	a := startAttempt(docPath, outDir)
	absOut, err := filepath.Abs(a.path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", a.path, err)
	}

	out, err := s.exec.Run(ctx, procexec.Command{
		Name:    bridge,
		Args:    []string{"-NoProfile", "-NonInteractive", "-ExecutionPolicy", "Bypass", "-Command", automationScript(s.kind, absDoc, absOut)},
		Timeout: s.timeout,
	})
	if err != nil {
		a.discard()
		return "", runFailure(s.Name(), out, err)
	}
	if !a.produced() {
		a.discard()
		return "", fmt.Errorf("%s finished but wrote no %s", s.Name(), filepath.Base(a.path))
	}
	return a.path, nil
}
