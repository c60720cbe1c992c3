// Package ocr defines the recognition boundary of the image translation
// pipeline and owns the process-wide recognition worker. Engines are
// intentionally small interfaces so they can be backed by native libraries
// (see the tesseract subpackage) or by fakes in tests without leaking
// provider-specific concerns into callers.
package ocr
