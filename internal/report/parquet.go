package report

import (
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"hrtriage/internal/incident"
)

// incidentParquetRow mirrors the CSV column set so both tables answer the
// same queries.
type incidentParquetRow struct {
	IncidentID        int64   `parquet:"name=incident_id, type=INT64"`
	StartTime         string  `parquet:"name=start_time, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	EndTime           string  `parquet:"name=end_time, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	DurationSeconds   float64 `parquet:"name=duration_seconds, type=DOUBLE"`
	MaxBPM            float64 `parquet:"name=max_bpm, type=DOUBLE"`
	AvgBPM            float64 `parquet:"name=avg_bpm, type=DOUBLE"`
	SampleCount       int64   `parquet:"name=sample_count, type=INT64"`
	Classification    string  `parquet:"name=classification, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	WorkoutConfidence string  `parquet:"name=workout_confidence, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	WorkoutType       string  `parquet:"name=workout_type, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	OverlapSeconds    float64 `parquet:"name=overlap_seconds, type=DOUBLE"`
	Notes             string  `parquet:"name=notes, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// WriteIncidentsParquet writes the classified incidents as a snappy-compressed
// parquet file with the same columns as the CSV table.
func WriteIncidentsParquet(path string, incidents []incident.Incident) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	pw, err := writer.NewParquetWriter(fw, new(incidentParquetRow), 4)
	if err != nil {
		_ = fw.Close()
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, inc := range incidents {
		row := incidentParquetRow{
			IncidentID:        int64(inc.IncidentID),
			StartTime:         inc.Start.UTC().Format(time.RFC3339),
			EndTime:           inc.End.UTC().Format(time.RFC3339),
			DurationSeconds:   inc.DurationSeconds,
			MaxBPM:            inc.MaxBPM,
			AvgBPM:            inc.AvgBPM,
			SampleCount:       int64(inc.SampleCount),
			Classification:    string(inc.Classification),
			WorkoutConfidence: string(inc.Confidence),
			WorkoutType:       inc.WorkoutType,
			OverlapSeconds:    inc.OverlapSeconds,
			Notes:             inc.Notes,
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return err
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}
