//go:build unix

package registry

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/suite"

	"github.com/srediag/plugin-qshm/api"
	"github.com/srediag/plugin-qshm/pkg/audit"
	"github.com/srediag/plugin-qshm/pkg/qshm"
)

// memPlugin serves mem://<name> from byte slices; "decline" URIs are claimed
// by CanHandle but refused with api.ErrNotMine.
type memPlugin struct {
	name    string
	initOK  bool
	regions map[string][]byte
}

func (p *memPlugin) Name() string { return p.name }
func (p *memPlugin) Init() bool   { return p.initOK }
func (p *memPlugin) CanHandle(uri string) bool {
	return strings.HasPrefix(uri, "mem://") || strings.HasPrefix(uri, "qshm://decline")
}

func (p *memPlugin) Open(uri string, access api.AccessMode, _ uint32) (api.Handle, error) {
	if !strings.HasPrefix(uri, "mem://") {
		return nil, api.ErrNotMine
	}
	data, ok := p.regions[strings.TrimPrefix(uri, "mem://")]
	if !ok {
		return nil, errors.New("mem: no such region")
	}
	return &memHandle{data: data, access: access}, nil
}

type memHandle struct {
	data   []byte
	access api.AccessMode
	closed bool
}

func (h *memHandle) ReadAt(p []byte, off uint64) (int, error) {
	if off > uint64(len(h.data)) {
		return 0, api.ErrOutOfBounds
	}
	return copy(p, h.data[off:]), nil
}

func (h *memHandle) WriteAt(p []byte, off uint64) (int, error) {
	if h.access != api.ReadWrite || off+uint64(len(p)) > uint64(len(h.data)) {
		return 0, api.ErrPermissionDenied
	}
	return copy(h.data[off:], p), nil
}

func (h *memHandle) Seek(cur uint64, offset int64, whence api.Whence) uint64 {
	if whence == api.FromEnd {
		return uint64(len(h.data))
	}
	if whence == api.FromCurrent {
		return cur + uint64(offset)
	}
	return uint64(offset)
}

func (h *memHandle) System(string) bool     { return false }
func (h *memHandle) Size() uint64           { return uint64(len(h.data)) }
func (h *memHandle) Access() api.AccessMode { return h.access }
func (h *memHandle) Live() bool             { return !h.closed }
func (h *memHandle) Close() error {
	h.closed = true
	return nil
}

// countingBackOff counts how often a retry was scheduled.
type countingBackOff struct {
	backoff.BackOff
	calls *int
}

func (b countingBackOff) NextBackOff() time.Duration {
	*b.calls++
	return b.BackOff.NextBackOff()
}

type RegistryTestSuite struct {
	suite.Suite
	reg   *Registry
	prom  *prometheus.Registry
	audit *audit.Log
	mem   *memPlugin
	dir   string
}

func (s *RegistryTestSuite) SetupTest() {
	p, err := qshm.New(qshm.Config{LogOutput: io.Discard})
	s.Require().NoError(err)
	s.mem = &memPlugin{name: "mem", initOK: true, regions: map[string][]byte{"a": []byte("0123456789")}}
	s.prom = prometheus.NewRegistry()
	s.audit = audit.NewLog(64)

	cfg := DefaultConfig()
	cfg.Registerer = s.prom
	cfg.Audit = s.audit
	cfg.LogOutput = io.Discard
	s.reg, err = New(cfg, p, s.mem)
	s.Require().NoError(err)
	s.dir = s.T().TempDir()
}

func (s *RegistryTestSuite) TearDownTest() {
	s.NoError(s.reg.CloseAll())
}

func (s *RegistryTestSuite) region(name string, content []byte) string {
	path := filepath.Join(s.dir, name)
	s.Require().NoError(os.WriteFile(path, content, 0o600))
	return qshm.Prefix + path
}

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	_ = c.Write(m)
	return m.GetCounter().GetValue()
}

func gaugeValue(g prometheus.Gauge) float64 {
	m := &dto.Metric{}
	_ = g.Write(m)
	return m.GetGauge().GetValue()
}

func (s *RegistryTestSuite) eventNames() []string {
	var names []string
	for _, e := range s.audit.Drain() {
		names = append(names, e.Name)
	}
	return names
}

func (s *RegistryTestSuite) TestPluginsAndCheck() {
	s.Equal([]string{"qshm", "mem"}, s.reg.Plugins())
	s.True(s.reg.Check("qshm:///dev/shm/x"))
	s.True(s.reg.Check("mem://a"))
	s.False(s.reg.Check("file:///etc/passwd"))

	_, err := s.reg.Open("file:///etc/passwd", api.ReadOnly, 0)
	s.ErrorIs(err, ErrNoPlugin)
	s.Equal(0, s.reg.Len())
}

func (s *RegistryTestSuite) TestRegisterRejectsDuplicateAndFailedInit() {
	s.ErrorIs(s.reg.Register(&memPlugin{name: "mem", initOK: true}), ErrDuplicatePlugin)
	s.ErrorIs(s.reg.Register(&memPlugin{name: "broken"}), ErrPluginInit)
	s.Equal([]string{"qshm", "mem"}, s.reg.Plugins())
}

func (s *RegistryTestSuite) TestNotMineFallsThrough() {
	_, err := s.reg.Open("qshm://decline", api.ReadOnly, 0)
	// qshm claims it first and fails to open a relative path that does not exist.
	s.ErrorIs(err, qshm.ErrIO)

	reg, err := New(Config{Namespace: "t", LogOutput: io.Discard}, s.mem)
	s.Require().NoError(err)
	_, err = reg.Open("qshm://decline", api.ReadOnly, 0)
	s.ErrorIs(err, ErrNoPlugin)
}

func (s *RegistryTestSuite) TestDescriptorStream() {
	d, err := s.reg.Open(s.region("region", []byte("abcdefgh")), api.ReadWrite, 0)
	s.Require().NoError(err)
	s.Equal("qshm", d.Plugin())
	s.Equal(uint64(8), d.Size())
	s.Equal(uint64(0), d.Offset())
	got, ok := s.reg.Get(d.ID())
	s.True(ok)
	s.Same(d, got)

	off, err := d.Seek(4, io.SeekStart)
	s.NoError(err)
	s.Equal(int64(4), off)
	n, err := d.Write([]byte{1, 2, 3, 4})
	s.NoError(err)
	s.Equal(4, n)
	s.Equal(uint64(8), d.Offset())

	_, err = d.Write([]byte{9})
	s.ErrorIs(err, api.ErrPermissionDenied)
	s.Equal(uint64(8), d.Offset())

	off, err = d.Seek(100, io.SeekCurrent)
	s.NoError(err)
	s.Equal(int64(8), off)

	_, err = d.Seek(0, io.SeekStart)
	s.NoError(err)
	all, err := io.ReadAll(d)
	s.NoError(err)
	s.Equal([]byte{'a', 'b', 'c', 'd', 1, 2, 3, 4}, all)

	buf := make([]byte, 4)
	n, err = d.ReadAt(buf, 6)
	s.ErrorIs(err, io.EOF)
	s.Equal(2, n)
	n, err = d.ReadAt(buf, 2)
	s.NoError(err)
	s.Equal(4, n)
	_, err = d.ReadAt(buf, -1)
	s.Error(err)

	n, err = d.WriteAt([]byte("XY"), 0)
	s.NoError(err)
	s.Equal(2, n)

	s.Equal(float64(8+2+4), counterValue(s.reg.metrics.readBytes))
	s.Equal(float64(6), counterValue(s.reg.metrics.writeBytes))
}

func (s *RegistryTestSuite) TestPermissiveSeekReadsEOF() {
	d, err := s.reg.Open(s.region("region", make([]byte, 8)), api.ReadOnly, 0)
	s.Require().NoError(err)

	off, err := d.Seek(100, io.SeekStart)
	s.NoError(err)
	s.Equal(int64(100), off)
	n, err := d.Read(make([]byte, 4))
	s.ErrorIs(err, io.EOF)
	s.Equal(0, n)

	off, err = d.Seek(-3, io.SeekEnd)
	s.NoError(err)
	s.Equal(int64(8), off)

	_, err = d.Seek(0, 42)
	s.Error(err)
	s.Equal(uint64(8), d.Offset())

	n, err = d.Read(nil)
	s.NoError(err)
	s.Equal(0, n)
}

func (s *RegistryTestSuite) TestCloseAndMetrics() {
	d1, err := s.reg.Open(s.region("one", make([]byte, 8)), api.ReadOnly, 0)
	s.Require().NoError(err)
	d2, err := s.reg.Open("mem://a", api.ReadOnly, 0)
	s.Require().NoError(err)
	_, err = s.reg.Open(qshm.Prefix+filepath.Join(s.dir, "missing"), api.ReadOnly, 0)
	s.Error(err)

	s.Equal(2, s.reg.Len())
	s.Equal([]*Descriptor{d1, d2}, s.reg.Descriptors())
	s.Equal(float64(2), gaugeValue(s.reg.metrics.open))
	s.Equal(float64(1), counterValue(s.reg.metrics.opens.WithLabelValues("qshm", "ok")))
	s.Equal(float64(1), counterValue(s.reg.metrics.opens.WithLabelValues("qshm", "error")))
	s.NoError(s.reg.Liveness())

	fd := d1.Handle().(*qshm.Resource).Fd()
	s.GreaterOrEqual(fd, 0)
	s.NoError(d1.Close())
	s.False(d1.Handle().Live())
	s.ErrorIs(d1.Close(), ErrUnknownDescriptor)
	s.ErrorIs(s.reg.Close(12345), ErrUnknownDescriptor)
	s.Equal(1, s.reg.Len())
	s.Equal(float64(1), gaugeValue(s.reg.metrics.open))

	s.NoError(s.reg.CloseAll())
	s.Equal(0, s.reg.Len())
	s.Equal([]string{"open", "open", "open_failed", "close", "close"}, s.eventNames())

	families, err := s.prom.Gather()
	s.NoError(err)
	s.NotEmpty(families)
}

func (s *RegistryTestSuite) TestLivenessDetectsLostMapping() {
	d, err := s.reg.Open(s.region("region", make([]byte, 8)), api.ReadOnly, 0)
	s.Require().NoError(err)
	s.Require().NoError(d.Handle().Close())
	s.Error(s.reg.Liveness())
	s.ErrorIs(d.Close(), api.ErrInvalidHandle)
	s.NoError(s.reg.Liveness())
}

func (s *RegistryTestSuite) TestSystemIsAudited() {
	d, err := s.reg.Open(s.region("region", make([]byte, 8)), api.ReadOnly, 0)
	s.Require().NoError(err)
	s.audit.Drain()

	s.True(d.System("info"))
	events := s.audit.Drain()
	s.Require().Len(events, 1)
	s.Equal("system", events[0].Name)
	s.Equal("info", events[0].Details["cmd"])
	s.Equal(float64(1), counterValue(s.reg.metrics.systemCalls))
}

func (s *RegistryTestSuite) TestOpenWaitForRegion() {
	path := filepath.Join(s.dir, "late")
	go func() {
		time.Sleep(50 * time.Millisecond)
		// rename so the region never appears with a zero size
		if err := os.WriteFile(path+".tmp", make([]byte, 16), 0o600); err == nil {
			_ = os.Rename(path+".tmp", path)
		}
	}()
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(10*time.Millisecond), 200)
	d, err := s.reg.OpenWait(context.Background(), qshm.Prefix+path, api.ReadOnly, 0, b)
	s.Require().NoError(err)
	s.Equal(uint64(16), d.Size())
}

func (s *RegistryTestSuite) TestOpenWaitPermanentError() {
	attempts := 0
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(10*time.Millisecond), 5)
	_, err := s.reg.OpenWait(context.Background(), s.region("empty", nil), api.ReadOnly, 0, countingBackOff{b, &attempts})
	var ioErr *qshm.IOError
	s.Require().ErrorAs(err, &ioErr)
	s.Equal("mmap", ioErr.Op)
	s.Equal(0, attempts)
}

func (s *RegistryTestSuite) TestOpenWaitGivesUpWithContext() {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := s.reg.OpenWait(ctx, qshm.Prefix+filepath.Join(s.dir, "never"), api.ReadOnly, 0, backoff.NewConstantBackOff(10*time.Millisecond))
	s.ErrorIs(err, context.DeadlineExceeded)
}

func (s *RegistryTestSuite) TestVerifyConfig() {
	s.NoError(VerifyConfig(DefaultConfig()))
	s.Error(VerifyConfig(Config{}))
	s.Error(VerifyConfig(Config{Namespace: "bad-name"}))
	_, err := New(Config{})
	s.Error(err)
}

func TestRegistryTestSuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}
