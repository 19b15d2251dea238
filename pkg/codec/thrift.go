// Copyright 2025 BINARY Members
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package codec

import (
	"fmt"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/cloudwego/frugal"
)

// TMarshal encodes a thrift.TStruct with frugal, the teacher's own
// pkg/utils helper carried over unchanged: frugal computes the wire size
// ahead of time and encodes directly into a single allocation instead of
// thrift's growable-buffer transport.
func TMarshal(data thrift.TStruct) ([]byte, error) {
	buf := make([]byte, frugal.EncodedSize(data))
	if _, err := frugal.EncodeObject(buf, nil, data); err != nil {
		return nil, err
	}
	return buf, nil
}

// TUnmarshal decodes buf into v with frugal.
func TUnmarshal(data []byte, v thrift.TStruct) error {
	if _, err := frugal.DecodeObject(data, v); err != nil {
		return err
	}
	return nil
}

// TimeWindowRecord is the wire shape of one history-store value: the
// visibility window the moved-aside update is valid for, plus the value
// bytes. It is the first real caller of TMarshal/TUnmarshal — the
// teacher's copy of these helpers ships with no caller at all.
type TimeWindowRecord struct {
	StartTxn       int64  `thrift:"start_txn,1" frugal:"1,default,i64"`
	StartTS        uint64 `thrift:"start_ts,2" frugal:"2,default,i64"`
	StopTxn        int64  `thrift:"stop_txn,3" frugal:"3,default,i64"`
	StopTS         uint64 `thrift:"stop_ts,4" frugal:"4,default,i64"`
	DurableStartTS uint64 `thrift:"durable_start_ts,5" frugal:"5,default,i64"`
	DurableStopTS  uint64 `thrift:"durable_stop_ts,6" frugal:"6,default,i64"`
	UpdateType     int8   `thrift:"update_type,7" frugal:"7,default,byte"`
	Value          []byte `thrift:"value,8" frugal:"8,default,binary"`
}

func (r *TimeWindowRecord) String() string {
	if r == nil {
		return "<nil>"
	}
	return fmt.Sprintf("TimeWindowRecord(%+v)", *r)
}

// Write satisfies thrift.TStruct so TimeWindowRecord can be passed to
// TMarshal directly, hand-written the way a thrift compiler would emit it
// for this field set.
func (r *TimeWindowRecord) Write(oprot thrift.TProtocol) error {
	if err := oprot.WriteStructBegin("TimeWindowRecord"); err != nil {
		return err
	}
	fields := []struct {
		name string
		id   int16
		typ  thrift.TType
		emit func() error
	}{
		{"start_txn", 1, thrift.I64, func() error { return oprot.WriteI64(r.StartTxn) }},
		{"start_ts", 2, thrift.I64, func() error { return oprot.WriteI64(int64(r.StartTS)) }},
		{"stop_txn", 3, thrift.I64, func() error { return oprot.WriteI64(r.StopTxn) }},
		{"stop_ts", 4, thrift.I64, func() error { return oprot.WriteI64(int64(r.StopTS)) }},
		{"durable_start_ts", 5, thrift.I64, func() error { return oprot.WriteI64(int64(r.DurableStartTS)) }},
		{"durable_stop_ts", 6, thrift.I64, func() error { return oprot.WriteI64(int64(r.DurableStopTS)) }},
		{"update_type", 7, thrift.BYTE, func() error { return oprot.WriteByte(r.UpdateType) }},
		{"value", 8, thrift.STRING, func() error { return oprot.WriteBinary(r.Value) }},
	}
	for _, f := range fields {
		if err := oprot.WriteFieldBegin(f.name, f.typ, f.id); err != nil {
			return err
		}
		if err := f.emit(); err != nil {
			return err
		}
		if err := oprot.WriteFieldEnd(); err != nil {
			return err
		}
	}
	if err := oprot.WriteFieldStop(); err != nil {
		return err
	}
	return oprot.WriteStructEnd()
}

// Read satisfies thrift.TStruct, skipping any field id it does not
// recognize (forward compatibility with a future wire version).
func (r *TimeWindowRecord) Read(iprot thrift.TProtocol) error {
	if _, err := iprot.ReadStructBegin(); err != nil {
		return err
	}
	for {
		_, fieldType, fieldID, err := iprot.ReadFieldBegin()
		if err != nil {
			return err
		}
		if fieldType == thrift.STOP {
			break
		}
		switch fieldID {
		case 1:
			v, err := iprot.ReadI64()
			if err != nil {
				return err
			}
			r.StartTxn = v
		case 2:
			v, err := iprot.ReadI64()
			if err != nil {
				return err
			}
			r.StartTS = uint64(v)
		case 3:
			v, err := iprot.ReadI64()
			if err != nil {
				return err
			}
			r.StopTxn = v
		case 4:
			v, err := iprot.ReadI64()
			if err != nil {
				return err
			}
			r.StopTS = uint64(v)
		case 5:
			v, err := iprot.ReadI64()
			if err != nil {
				return err
			}
			r.DurableStartTS = uint64(v)
		case 6:
			v, err := iprot.ReadI64()
			if err != nil {
				return err
			}
			r.DurableStopTS = uint64(v)
		case 7:
			v, err := iprot.ReadByte()
			if err != nil {
				return err
			}
			r.UpdateType = v
		case 8:
			v, err := iprot.ReadBinary()
			if err != nil {
				return err
			}
			r.Value = v
		default:
			if err := iprot.Skip(fieldType); err != nil {
				return err
			}
		}
		if err := iprot.ReadFieldEnd(); err != nil {
			return err
		}
	}
	if err := iprot.ReadStructEnd(); err != nil {
		return err
	}
	return nil
}
