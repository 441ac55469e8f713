package analysis

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/sarchlab/hbmnoc/datarecording"
)

// PerfAnalyzerBackend is the interface that provides the service that can
// record performance data entries.
type PerfAnalyzerBackend interface {
	AddDataEntry(entry PerfAnalyzerEntry)
	Flush()
}

const perfTableName = "perf"

// RecorderBackend writes entries into the perf table of a data recorder.
type RecorderBackend struct {
	recorder datarecording.DataRecorder
}

// NewRecorderBackend creates the perf table in recorder.
func NewRecorderBackend(recorder datarecording.DataRecorder) *RecorderBackend {
	recorder.CreateTable(perfTableName, PerfAnalyzerEntry{})

	return &RecorderBackend{recorder: recorder}
}

// AddDataEntry buffers an entry.
func (b *RecorderBackend) AddDataEntry(entry PerfAnalyzerEntry) {
	b.recorder.InsertData(perfTableName, entry)
}

// Flush writes the buffered entries.
func (b *RecorderBackend) Flush() {
	b.recorder.Flush()
}

// CSVBackend is a PerfAnalyzerBackend that writes data entries to
// a CSV file.
type CSVBackend struct {
	dbFile    *os.File
	csvWriter *csv.Writer
}

// NewCSVPerfAnalyzerBackend creates filename.csv and writes the header.
func NewCSVPerfAnalyzerBackend(filename string) (*CSVBackend, error) {
	f, err := os.Create(filename + ".csv")
	if err != nil {
		return nil, fmt.Errorf("creating perf file: %w", err)
	}

	p := &CSVBackend{
		dbFile:    f,
		csvWriter: csv.NewWriter(f),
	}

	header := []string{"Start", "End", "Where", "What", "EntryType", "Value", "Unit"}
	if err := p.csvWriter.Write(header); err != nil {
		f.Close()
		return nil, err
	}

	return p, nil
}

// AddDataEntry adds a data entry to the CSV file.
func (p *CSVBackend) AddDataEntry(entry PerfAnalyzerEntry) {
	err := p.csvWriter.Write([]string{
		strconv.FormatUint(entry.Start, 10),
		strconv.FormatUint(entry.End, 10),
		entry.Where,
		entry.What,
		entry.EntryType,
		fmt.Sprintf("%.6f", entry.Value),
		entry.Unit,
	})
	if err != nil {
		panic(err)
	}
}

// Flush flushes the CSV writer.
func (p *CSVBackend) Flush() {
	p.csvWriter.Flush()

	if err := p.csvWriter.Error(); err != nil {
		panic(err)
	}
}

// Close flushes and closes the file.
func (p *CSVBackend) Close() error {
	p.Flush()
	return p.dbFile.Close()
}
