// Package bcbp extracts boarding-pass fields from decoded barcode payloads
// and OCR text. Payloads nominally follow the IATA Bar-Coded Boarding Pass
// layout, but ticketing systems emit it inconsistently, so extraction runs as
// an ordered list of strategies and never fails outright: anything that could
// not be extracted stays empty and is recorded in ParseErrors.
package bcbp
