package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Status is the execution status carried by every result line.
type Status int

const (
	StatusOK Status = iota
	StatusError
	StatusNotImplemented
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusError:
		return "ERROR"
	case StatusNotImplemented:
		return "NOT IMPLEMENTED"
	}
	return "ERROR"
}

// Field is a single named column value inside a data row.
type Field struct {
	Name  string
	Value any
}

// Row is an ordered sequence of column values. It marshals to a JSON object
// whose keys appear in column order, which map-based marshalling would not
// preserve.
type Row []Field

func (r Row) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			b.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		b.Write(name)
		b.WriteByte(':')
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		b.Write(value)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// Result is the response document for one input line. Data is nil for
// commands that do not produce rows; read commands carry a non-nil Data even
// when no rows matched.
type Result struct {
	Status  Status
	Message string
	Data    []Row
}

// MarshalJSON renders the wire envelope: status always, message only for
// non-empty error messages, data only for read results.
func (r *Result) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(`{"status":`)
	status, err := json.Marshal(r.Status.String())
	if err != nil {
		return nil, err
	}
	b.Write(status)
	if r.Status == StatusError && r.Message != "" {
		b.WriteString(`,"message":`)
		message, err := json.Marshal(r.Message)
		if err != nil {
			return nil, err
		}
		b.Write(message)
	}
	if r.Data != nil {
		b.WriteString(`,"data":`)
		data, err := json.Marshal(r.Data)
		if err != nil {
			return nil, err
		}
		b.Write(data)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// OK returns a plain success result.
func OK() *Result {
	return &Result{Status: StatusOK}
}

// OKRows returns a success result carrying the given rows. The data array is
// present on the wire even when rows is empty.
func OKRows(rows []Row) *Result {
	if rows == nil {
		rows = []Row{}
	}
	return &Result{Status: StatusOK, Data: rows}
}

// Error returns an error result. Double quotes in the message are replaced
// so the message can never break out of the envelope.
func Error(message string) *Result {
	return &Result{Status: StatusError, Message: strings.ReplaceAll(message, `"`, `'`)}
}

// NotImplemented returns the stub result.
func NotImplemented() *Result {
	return &Result{Status: StatusNotImplemented}
}

// ConnectionError is the result for every command reaching a missing or
// closed session.
func ConnectionError() *Result {
	return Error("Connection was not established")
}
