package fd

import "github.com/jason-hue/rvos/defs"

// ring is a small fixed-capacity byte ring buffer, the storage a Pipe's
// two endpoints share (spec.md §3 "bounded ring buffer with two
// endpoints").
type ring struct {
	buf        []byte
	head, tail int
	size       int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]byte, capacity)}
}

func (r *ring) full() bool  { return r.size == len(r.buf) }
func (r *ring) empty() bool { return r.size == 0 }

func (r *ring) push(b byte) bool {
	if r.full() {
		return false
	}
	r.buf[r.tail] = b
	r.tail = (r.tail + 1) % len(r.buf)
	r.size++
	return true
}

func (r *ring) pop() (byte, bool) {
	if r.empty() {
		return 0, false
	}
	b := r.buf[r.head]
	r.head = (r.head + 1) % len(r.buf)
	r.size--
	return b, true
}

// pipeShared is the state both ends of one pipe() call reference.
type pipeShared struct {
	buf         *ring
	readClosed  bool
	writeClosed bool
}

// PipeCapacity is the ring buffer size new pipes are created with.
const PipeCapacity = 4096

// NewPipe builds a connected (read-end, write-end) pair, mirroring
// original_source's make_pipe.
func NewPipe() (*Pipe, *Pipe) {
	shared := &pipeShared{buf: newRing(PipeCapacity)}
	return &Pipe{shared: shared, isWrite: false}, &Pipe{shared: shared, isWrite: true}
}

// Pipe is one endpoint of a pipe; readable XOR writable depending on
// which end it is.
type Pipe struct {
	shared  *pipeShared
	isWrite bool
}

func (p *Pipe) Readable() bool { return !p.isWrite }
func (p *Pipe) Writable() bool { return p.isWrite }
func (p *Pipe) Name() string   { return "pipe" }

func (p *Pipe) Seek(Whence, int64) (int64, defs.Err_t) { return 0, -defs.EINVAL }

// Close marks this endpoint closed so the other end observes EOF
// (read end exhausted, empty, write end closed) or a broken pipe
// (write end, read end closed).
func (p *Pipe) Close() {
	if p.isWrite {
		p.shared.writeClosed = true
	} else {
		p.shared.readClosed = true
	}
}

// Read drains up to buf.Len bytes. Per spec.md's suspension-point list,
// reading an empty pipe with the write end still open returns (0, nil)
// rather than blocking inside this call — the syscall layer is expected
// to yield and retry, the same non-blocking-call contract Stdin uses for
// "no character yet".
func (p *Pipe) Read(buf UserBuffer) (int, defs.Err_t) {
	if p.isWrite {
		return 0, -defs.EBADF
	}
	if p.shared.buf.empty() {
		if p.shared.writeClosed {
			return 0, 0 // EOF
		}
		return 0, 0 // would-block: caller yields and retries
	}
	tmp := make([]byte, 0, buf.Len)
	for len(tmp) < buf.Len {
		b, ok := p.shared.buf.pop()
		if !ok {
			break
		}
		tmp = append(tmp, b)
	}
	return buf.WriteFromKernel(tmp), 0
}

// Write pushes up to buf.Len bytes into the ring, stopping early if it
// fills (this kernel has no blocking write either; a short write is
// reported rather than silently dropped).
func (p *Pipe) Write(buf UserBuffer) (int, defs.Err_t) {
	if !p.isWrite {
		return 0, -defs.EBADF
	}
	if p.shared.readClosed {
		return 0, -defs.EPERM // broken pipe: no SIGPIPE in this kernel, report EPERM
	}
	tmp := make([]byte, buf.Len)
	n := buf.ReadIntoKernel(tmp)
	written := 0
	for _, b := range tmp[:n] {
		if !p.shared.buf.push(b) {
			break
		}
		written++
	}
	return written, 0
}
