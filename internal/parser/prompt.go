package parser

import "parcelscope/internal/domain"

const boundaryPromptBase = `You are an expert property analyst who reads parcel maps, plat maps, surveys and legal descriptions. Your task is to extract the property boundary as an ordered list of corner coordinates.

Return ONLY a JSON object with this exact structure:

{
  "document_type": "parcel_map | plat | survey | legal_description | unknown",
  "confidence_score": 0.0,
  "vertices": [
    {"latitude": null, "longitude": null, "description": "corner description"}
  ],
  "extraction_notes": "anything unclear or ambiguous"
}

CRITICAL INSTRUCTIONS:
1. Coordinates must be WGS84 decimal degrees. Latitude first, then longitude. Use negative values for south and west.
2. List the boundary corners in order around the perimeter, starting at the point of beginning when one is stated.
3. Do not repeat the first corner at the end of the list.
4. confidence_score is a number between 0.0 and 1.0 describing how reliable the coordinates are.
5. Be precise with numerical values. Do not round or approximate.
6. Use null for any latitude or longitude that cannot be read from the document. Never guess.
7. Distinguish property boundaries from roads, utilities and easements.
8. Put any caveats in extraction_notes, not in the coordinate fields.
`

var documentTypeInstructions = map[domain.DocumentType]string{
	domain.DocumentTypeParcelMap: `
PARCEL MAP SPECIFIC INSTRUCTIONS:
- Look for parcel identification numbers and lot boundaries
- Identify property lines vs. road right-of-ways
- Extract any dimensions shown along property lines
- Look for coordinate grids or reference systems
`,
	domain.DocumentTypePlat: `
PLAT MAP SPECIFIC INSTRUCTIONS:
- Focus on lot and block numbers
- Look for coordinate ties to section corners or other reference points
- Identify utility easements and keep them out of the boundary
- Extract street names and right-of-way widths into extraction_notes
`,
	domain.DocumentTypeSurvey: `
SURVEY DOCUMENT SPECIFIC INSTRUCTIONS:
- Focus on precise coordinate values and survey measurements
- Look for state plane or UTM coordinates and convert them to WGS84 only when the zone is stated
- Identify survey monuments and use them as corner descriptions
- Note closure calculations and accuracy statements in extraction_notes
`,
	domain.DocumentTypeLegalDescription: `
LEGAL DESCRIPTION SPECIFIC INSTRUCTIONS:
- Follow the metes and bounds calls in order
- Report only corners whose coordinates are stated or tied to a stated coordinate
- Record bearings and distances you could not resolve in extraction_notes
`,
}

const generalInstructions = `
GENERAL PROPERTY DOCUMENT INSTRUCTIONS:
- Identify the document type and adapt extraction accordingly
- Focus on any coordinate or measurement information present
- Look for property identification and location details
`

// BuildBoundaryPrompt returns the extraction prompt for a document type.
func BuildBoundaryPrompt(docType domain.DocumentType) string {
	specific, ok := documentTypeInstructions[docType]
	if !ok {
		specific = generalInstructions
	}
	return boundaryPromptBase + specific
}

// BuildTextPrompt returns the extraction prompt for a pasted legal
// description. The text is appended after the instructions.
func BuildTextPrompt(text string) string {
	return withDocumentText(BuildBoundaryPrompt(domain.DocumentTypeLegalDescription), text)
}

func withDocumentText(prompt, text string) string {
	return prompt + `
Text to analyze:
"""
` + text + `
"""
`
}
