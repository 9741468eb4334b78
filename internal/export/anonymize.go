package export

import (
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// identityTags is the patient identity set removed by anonymized exports.
// Scan-technique and calibration tags always survive.
var identityTags = []tag.Tag{
	tag.PatientName,
	tag.PatientID,
	tag.PatientBirthDate,
	tag.PatientSex,
	tag.PatientAge,
	tag.PatientAddress,
	tag.ReferringPhysicianName,
	tag.InstitutionName,
	tag.OperatorsName,
	tag.AccessionNumber,
}

// Anonymize strips the identity tag set from a dataset in place and
// returns how many elements were removed.
func Anonymize(ds *dicom.Dataset) int {
	drop := make(map[tag.Tag]bool, len(identityTags))
	for _, t := range identityTags {
		drop[t] = true
	}

	kept := ds.Elements[:0]
	removed := 0
	for _, el := range ds.Elements {
		if drop[el.Tag] {
			removed++
			continue
		}
		kept = append(kept, el)
	}
	ds.Elements = kept
	return removed
}
