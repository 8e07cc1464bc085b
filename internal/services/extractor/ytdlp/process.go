package ytdlp

import (
	"context"
	"os"
	"os/exec"
	"sync"
	"time"

	"mediafetch/internal/domain/ports"
)

// Process wraps one running extractor subprocess. Kill is safe to call more
// than once and concurrently with the output readers.
type Process struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	done   chan struct{}
	err    error

	readers sync.WaitGroup
}

var _ ports.Process = (*Process)(nil)

func newProcess(ctx context.Context, binary string, args []string) *Process {
	ctx2, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx2, binary, args...)

	// The extractor forks helper processes (ffmpeg) that inherit our output
	// pipes. Kills must reach the whole group or the pipe readers would
	// block on the orphans until they exit on their own.
	setSysProcAttr(cmd)
	cmd.Cancel = func() error { return killExtractor(cmd) }
	cmd.WaitDelay = 10 * time.Second

	// The extractor buffers stdout when it is not a tty; progress lines
	// have to arrive as they are printed.
	cmd.Env = append(cmd.Environ(),
		"PYTHONUNBUFFERED=1",
		"PYTHONIOENCODING=utf-8",
	)

	return &Process{
		cmd:    cmd,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// start launches the subprocess with both output streams on unbuffered
// pipes. onStdout and onStderr run on their own goroutines and must read to
// EOF and close the file they are given. done closes only after the process
// has exited and both readers have drained.
func (p *Process) start(onStdout, onStderr func(r *os.File)) error {
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		p.cancel()
		return err
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		p.cancel()
		return err
	}
	p.cmd.Stdout = stdoutW
	p.cmd.Stderr = stderrW

	if err := p.cmd.Start(); err != nil {
		stdoutR.Close()
		stdoutW.Close()
		stderrR.Close()
		stderrW.Close()
		p.cancel()
		return err
	}

	// The child holds its own copies; close ours so the readers see EOF
	// when it exits.
	stdoutW.Close()
	stderrW.Close()

	p.readers.Add(2)
	go func() {
		defer p.readers.Done()
		onStdout(stdoutR)
	}()
	go func() {
		defer p.readers.Done()
		onStderr(stderrR)
	}()

	go func() {
		waitErr := p.cmd.Wait()
		p.readers.Wait()
		p.err = waitErr
		close(p.done)
	}()

	return nil
}

// Kill terminates the subprocess and every helper it spawned.
func (p *Process) Kill() error {
	defer p.cancel()
	return killExtractor(p.cmd)
}

// Wait blocks until the process exits and every output reader has drained.
func (p *Process) Wait() error {
	<-p.done
	return p.err
}

// ExitCode is valid once the process has exited; -1 before that and for
// signal-killed processes.
func (p *Process) ExitCode() int {
	select {
	case <-p.done:
	default:
		return -1
	}
	if state := p.cmd.ProcessState; state != nil {
		return state.ExitCode()
	}
	return -1
}

// Done returns a channel that is closed when the process exits.
func (p *Process) Done() <-chan struct{} {
	return p.done
}
