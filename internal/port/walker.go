package port

import "catalograg/internal/domain"

// WorkbookSource resolves file, directory and glob arguments to spreadsheet paths.
type WorkbookSource interface {
	Resolve(args []string) ([]string, error)
}

// RecordReader loads product rows from a spreadsheet file.
type RecordReader interface {
	ReadRecords(path string) ([]domain.ProductRecord, error)
}
