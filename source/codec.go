package source

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/tcassar-diss/systrace/syscalltbl"
)

// recordHeader is the fixed little endian prefix of an encoded sample. The event name,
// the callchain and the raw payload follow it in that order.
type recordHeader struct {
	Kind        uint16
	Machine     uint16
	CPU         uint32
	Pid         int32
	Tid         int32
	Time        uint64
	IP          uint64
	Addr        uint64
	NameLen     uint16
	NrCallchain uint16
	RawLen      uint32
}

var headerSize = binary.Size(recordHeader{})

// Encode serialises s into a record.
func Encode(s *Sample) ([]byte, error) {
	if len(s.Event) > 0xffff || len(s.Callchain) > 0xffff {
		return nil, fmt.Errorf("failed to encode sample: event name or callchain too long")
	}

	hdr := recordHeader{
		Kind:        uint16(s.Kind),
		Machine:     uint16(s.Machine),
		CPU:         s.CPU,
		Pid:         int32(s.Pid),
		Tid:         int32(s.Tid),
		Time:        s.Time,
		IP:          s.IP,
		Addr:        s.Addr,
		NameLen:     uint16(len(s.Event)),
		NrCallchain: uint16(len(s.Callchain)),
		RawLen:      uint32(len(s.Raw)),
	}

	var buf bytes.Buffer

	buf.Grow(headerSize + len(s.Event) + 8*len(s.Callchain) + len(s.Raw))

	if err := binary.Write(&buf, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("failed to write record header: %w", err)
	}

	buf.WriteString(s.Event)

	if len(s.Callchain) > 0 {
		if err := binary.Write(&buf, binary.LittleEndian, s.Callchain); err != nil {
			return nil, fmt.Errorf("failed to write callchain: %w", err)
		}
	}

	buf.Write(s.Raw)

	return buf.Bytes(), nil
}

// Decode parses one record. The returned sample does not alias record.
func Decode(record []byte) (*Sample, error) {
	if len(record) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes, header needs %d", ErrTruncatedRecord, len(record), headerSize)
	}

	r := bytes.NewReader(record)

	var hdr recordHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("failed to parse record header: %w", err)
	}

	kind := Kind(hdr.Kind)
	if !kind.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEventKind, hdr.Kind)
	}

	need := int(hdr.NameLen) + 8*int(hdr.NrCallchain) + int(hdr.RawLen)
	if r.Len() < need {
		return nil, fmt.Errorf("%w: body has %d bytes, header announces %d", ErrTruncatedRecord, r.Len(), need)
	}

	s := &Sample{
		Kind:    kind,
		Machine: syscalltbl.Machine(hdr.Machine),
		CPU:     hdr.CPU,
		Pid:     int(hdr.Pid),
		Tid:     int(hdr.Tid),
		Time:    hdr.Time,
		IP:      hdr.IP,
		Addr:    hdr.Addr,
	}

	name := make([]byte, hdr.NameLen)
	_, _ = r.Read(name)
	s.Event = string(name)

	if hdr.NrCallchain > 0 {
		s.Callchain = make([]uint64, hdr.NrCallchain)
		if err := binary.Read(r, binary.LittleEndian, s.Callchain); err != nil {
			return nil, fmt.Errorf("failed to parse callchain: %w", err)
		}
	}

	if hdr.RawLen > 0 {
		s.Raw = make([]byte, hdr.RawLen)
		_, _ = r.Read(s.Raw)
	}

	return s, nil
}
