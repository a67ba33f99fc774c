package documents

import "time"

// Response is the JSON shape of a document.
type Response struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	OriginalFileURL string    `json:"originalFileUrl"`
	FileType        FileType  `json:"fileType"`
	Status          Status    `json:"status"`
	ExtractedText   string    `json:"extractedText"`
	CreatedDate     time.Time `json:"createdDate"`
	UpdatedDate     time.Time `json:"updatedDate"`
}

// ToResponse maps a document to its JSON shape.
func ToResponse(doc Document) Response {
	return Response{
		ID:              doc.ID,
		Title:           doc.Title,
		OriginalFileURL: doc.OriginalFileURL,
		FileType:        doc.FileType,
		Status:          doc.Status,
		ExtractedText:   doc.ExtractedText,
		CreatedDate:     doc.CreatedDate,
		UpdatedDate:     doc.UpdatedDate,
	}
}

// ToResponses maps a slice of documents.
func ToResponses(docs []Document) []Response {
	out := make([]Response, 0, len(docs))
	for _, doc := range docs {
		out = append(out, ToResponse(doc))
	}
	return out
}
