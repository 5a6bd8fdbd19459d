package domain

// FileRole is the purpose of an uploaded file within a listing.
type FileRole string

// FileRole values.
const (
	RolePrimaryImage    FileRole = "primaryImage"
	RoleAdditionalImage FileRole = "additionalImage"
	RoleLegalDocs       FileRole = "legalDocs"
	RoleValuationReport FileRole = "valuationReport"
)

// UploadResult is produced once per uploaded file.
type UploadResult struct {
	Role        FileRole `json:"-"`
	CID         string   `json:"cid"`
	Hash        string   `json:"hash"`
	ContentType string   `json:"contentType,omitempty"`
	Size        int64    `json:"size"`
}

// FileManifest collects upload results keyed by role.
type FileManifest struct {
	PrimaryImage     *UploadResult  `json:"primaryImage,omitempty"`
	AdditionalImages []UploadResult `json:"additionalImages,omitempty"`
	LegalDocs        *UploadResult  `json:"legalDocs,omitempty"`
	ValuationReport  *UploadResult  `json:"valuationReport,omitempty"`
}

// Put stores r under its role. Additional images are appended in call order.
func (m *FileManifest) Put(r UploadResult) {
	switch r.Role {
	case RolePrimaryImage:
		m.PrimaryImage = &r
	case RoleAdditionalImage:
		m.AdditionalImages = append(m.AdditionalImages, r)
	case RoleLegalDocs:
		m.LegalDocs = &r
	case RoleValuationReport:
		m.ValuationReport = &r
	}
}

// Entries returns results in anchoring order:
// primary image, additional images, legal doc, valuation report.
func (m *FileManifest) Entries() []UploadResult {
	var out []UploadResult
	add := func(r UploadResult, role FileRole) {
		r.Role = role
		out = append(out, r)
	}
	if m.PrimaryImage != nil {
		add(*m.PrimaryImage, RolePrimaryImage)
	}
	for _, r := range m.AdditionalImages {
		add(r, RoleAdditionalImage)
	}
	if m.LegalDocs != nil {
		add(*m.LegalDocs, RoleLegalDocs)
	}
	if m.ValuationReport != nil {
		add(*m.ValuationReport, RoleValuationReport)
	}
	return out
}

// Len returns the number of files in the manifest.
func (m *FileManifest) Len() int {
	return len(m.Entries())
}
