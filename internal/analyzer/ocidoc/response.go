package ocidoc

import (
	"encoding/json"
	"fmt"

	"invoicescan/internal/domain"
)

type analyzeRequest struct {
	CompartmentID string         `json:"compartmentId,omitempty"`
	Document      inlineDocument `json:"document"`
	Features      []feature      `json:"features"`
}

type inlineDocument struct {
	Source string `json:"source"`
	Data   string `json:"data"`
}

type feature struct {
	FeatureType string `json:"featureType"`
	MaxResults  int    `json:"maxResults,omitempty"`
}

type analyzeResponse struct {
	Pages []struct {
		PageNumber     int             `json:"pageNumber"`
		DocumentFields []documentField `json:"documentFields"`
	} `json:"pages"`
	DetectedDocumentTypes []struct {
		DocumentType string   `json:"documentType"`
		Confidence   *float64 `json:"confidence"`
	} `json:"detectedDocumentTypes"`
}

type documentField struct {
	FieldType  string      `json:"fieldType"`
	FieldName  *string     `json:"fieldName"`
	FieldLabel *fieldLabel `json:"fieldLabel"`
	FieldValue *fieldValue `json:"fieldValue"`
}

type fieldLabel struct {
	Name       *string  `json:"name"`
	Confidence *float64 `json:"confidence"`
}

type fieldValue struct {
	ValueType       string          `json:"valueType"`
	Text            *string         `json:"text"`
	NormalizedValue json.RawMessage `json:"normalizedValue"`
	Items           []documentField `json:"items"`
}

func decodeResponse(body []byte) (*domain.AnalyzedDocument, error) {
	var resp analyzeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	doc := &domain.AnalyzedDocument{Fields: []domain.FieldNode{}}
	for _, page := range resp.Pages {
		for i := range page.DocumentFields {
			doc.Fields = append(doc.Fields, toNode(&page.DocumentFields[i]))
		}
	}
	for _, dt := range resp.DetectedDocumentTypes {
		doc.DocumentTypes = append(doc.DocumentTypes, domain.DetectedDocumentType{
			DocumentType: dt.DocumentType,
			Confidence:   dt.Confidence,
		})
	}
	return doc, nil
}

// toNode converts one wire field. A value carrying items becomes a group;
// anything else is a scalar whose text falls back to the normalized value.
func toNode(f *documentField) domain.FieldNode {
	node := domain.FieldNode{Kind: domain.FieldKindScalar, Type: f.FieldType}
	if f.FieldLabel != nil {
		node.Label = f.FieldLabel.Name
		node.LabelConfidence = f.FieldLabel.Confidence
	}
	if node.Label == nil || *node.Label == "" {
		node.Label = f.FieldName
	}

	v := f.FieldValue
	if v == nil {
		return node
	}
	if v.ValueType == "ARRAY" || v.Items != nil {
		node.Kind = domain.FieldKindGroup
		node.Children = make([]domain.FieldNode, 0, len(v.Items))
		for i := range v.Items {
			node.Children = append(node.Children, toNode(&v.Items[i]))
		}
		return node
	}
	node.Text = valueText(v)
	return node
}

func valueText(v *fieldValue) *string {
	if v.Text != nil && *v.Text != "" {
		return v.Text
	}
	if len(v.NormalizedValue) == 0 || string(v.NormalizedValue) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(v.NormalizedValue, &s); err == nil {
		if s == "" {
			return nil
		}
		return &s
	}
	// Numeric or date normalized values are kept in their JSON form.
	raw := string(v.NormalizedValue)
	return &raw
}
