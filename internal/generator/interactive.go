package generator

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"lickey/internal/license"
	"lickey/pkg/contracts"
)

// QuitWord ends the feature loop, or abandons saving.
const QuitWord = "quit"

// ErrInputClosed is returned when input ends before the session finishes.
var ErrInputClosed = errors.New("input closed")

// Session is one interactive run. Input is read as whitespace separated
// words, so names cannot contain spaces.
type Session struct {
	gen *Generator
	in  *bufio.Scanner
	out io.Writer
}

// NewSession binds g to a terminal-like reader and writer.
func (g *Generator) NewSession(in io.Reader, out io.Writer) *Session {
	scanner := bufio.NewScanner(in)
	scanner.Split(bufio.ScanWords)
	return &Session{gen: g, in: scanner, out: out}
}

// SessionResult is the outcome of Run. Path is empty when nothing was saved.
type SessionResult struct {
	Path     string
	Features int
}

// Run prompts for the identity, the hardware key, then features until
// "quit", and finally a file name. The file is written as
// {base}({hardwareKey}){ext}.
func (s *Session) Run() (*SessionResult, error) {
	fmt.Fprintf(s.out, "License generator V%s\n", contracts.Version)
	fmt.Fprintln(s.out, "(half-width characters only / without space and tabspace)")
	fmt.Fprintln(s.out)

	vendor, err := s.ask("vender name:")
	if err != nil {
		return nil, err
	}
	application, err := s.ask("application name:")
	if err != nil {
		return nil, err
	}
	mgr, err := license.NewManager(vendor, application, s.gen.codec, license.WithFs(s.gen.fs))
	if err != nil {
		return nil, err
	}

	var key license.HardwareKey
	for {
		text, err := s.ask("hardware key(11-22-33-AA-BB-CC format):")
		if err != nil {
			return nil, err
		}
		if key, err = license.ParseHardwareKey(text); err == nil {
			break
		}
		fmt.Fprintln(s.out, "invalid hardware key")
	}

	lic := license.NewLicense()
	if err := s.collectFeatures(mgr, lic); err != nil {
		return nil, err
	}
	result := &SessionResult{Features: lic.Features().Len()}
	if result.Features == 0 {
		fmt.Fprintln(s.out, "no feature defined")
		return result, nil
	}

	for {
		name, err := s.ask("license file name:")
		if err != nil {
			return nil, err
		}
		name = strings.ToLower(name)
		if name == QuitWord {
			fmt.Fprintln(s.out, "done without saving license file")
			return result, nil
		}

		path := KeyedFileName(name, key)
		if err := mgr.Save(path, key, lic); err != nil {
			fmt.Fprintf(s.out, "fail to save into = %s\n", path)
			s.gen.logger.Warn("save failed", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		fmt.Fprintf(s.out, "done to save into = %s\n", path)
		s.gen.logger.Info("license written",
			slog.String("path", path),
			slog.String("identity", mgr.Identity()),
			slog.String("hardware_key", key.String()),
			slog.Int("features", result.Features))
		result.Path = path
		return result, nil
	}
}

func (s *Session) collectFeatures(mgr *license.Manager, lic *license.License) error {
	for {
		name, err := s.ask(`feature name ("quit" to quit this operation):`)
		if err != nil {
			return err
		}
		name = license.NormalizeFeatureName(name)
		if name == QuitWord {
			return nil
		}

		version, err := s.ask("feature version(positive integer):")
		if err != nil {
			return err
		}
		issued := license.DateOf(s.gen.now())

		var expire string
		for {
			if expire, err = s.ask("expire date(YYYYMMDD format):"); err != nil {
				return err
			}
			expire = strings.ToLower(expire)
			if expire == QuitWord {
				break
			}
			if _, err := license.ParseDate(expire); err != nil {
				fmt.Fprintln(s.out, "invalid date format")
				continue
			}
			break
		}

		var count uint32
		for {
			text, err := s.ask("num licenses(positive integer):")
			if err != nil {
				return err
			}
			n, err := strconv.ParseUint(text, 10, 32)
			if err != nil || n == 0 {
				fmt.Fprintln(s.out, "num licenses must be more than 0")
				continue
			}
			count = uint32(n)
			break
		}

		if err := mgr.Add(name, version, issued, expire, count, lic); err != nil {
			fmt.Fprintln(s.out, "fail to add new feature")
			s.gen.logger.Debug("feature rejected", slog.String("feature", name), slog.String("error", err.Error()))
			continue
		}
		fmt.Fprintf(s.out, "done to add feature = %s\n", name)
		fmt.Fprintf(s.out, "  version = %s\n", version)
		fmt.Fprintf(s.out, "  issueDate date = %s\n", issued)
		fmt.Fprintf(s.out, "  expire date = %s\n", expire)
		fmt.Fprintf(s.out, "  num licenses = %d\n", count)
	}
}

func (s *Session) ask(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", err
		}
		return "", ErrInputClosed
	}
	return strings.TrimSpace(s.in.Text()), nil
}

// KeyedFileName inserts "(key)" between the base name and the extension.
func KeyedFileName(name string, key license.HardwareKey) string {
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s(%s)%s", strings.TrimSuffix(name, ext), key, ext)
}
