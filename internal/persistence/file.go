// Package persistence writes measurement records to disk as
// date-partitioned JSON files.
package persistence

import (
	"encoding/json"
	"os"
	"path"
	"time"
)

// DataFile describes a result file written to disk.
type DataFile struct {
	// Prefix is the data directory the file was written under.
	Prefix string
	// Datatype is the measurement type (e.g. "tick1").
	Datatype string
	// Subtest qualifies the datatype (e.g. "monitor").
	Subtest string
	// UUID is the unique identifier of the written record.
	UUID string
	// Path is the full path of the written file.
	Path string
	// Size is the number of bytes written.
	Size int
}

// WriteDataFile serializes result as JSON into
// <prefix>/<datatype>/<yyyy>/<mm>/<dd>/<datatype>-<subtest>-<ts>.<uuid>.json
// and returns a description of the written file.
func WriteDataFile(prefix, datatype, subtest, uuid string, result any) (*DataFile, error) {
	timestamp := time.Now()
	dir := path.Join(prefix, datatype, timestamp.Format("2006/01/02"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	filepath := path.Join(dir, datatype+"-"+subtest+"-"+
		timestamp.Format("20060102T150405.000000000Z")+"."+uuid+".json")

	data, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return nil, err
	}
	return &DataFile{
		Prefix:   prefix,
		Datatype: datatype,
		Subtest:  subtest,
		UUID:     uuid,
		Path:     filepath,
		Size:     len(data),
	}, nil
}
