package models

const (
	DefaultModel     = "deepseek-r1"
	DefaultChunkSize = 200

	ThinkTag  = `(?s)<think>.*?</think>`
	CodeFence = "(?m)^```[a-zA-Z]*\\s*$"
)

var (
	// CleanPromptTemplate takes: target column list, target column list again,
	// sample section, input data, additional instructions.
	CleanPromptTemplate = `You are a data processing expert whose sole task is to convert completely inconsistent data into a clean CSV format. You will receive a set of unstructured data containing information about various entities. Your task is to extract the relevant information for the following columns and output it in a standardized CSV format.

**Important Rules:**

1. **Limit to the specified columns:** Extract and use only the columns defined here: ` + "`%s`" + `. Ignore all other information in the input data.
2. **Clean CSV format:** The output MUST be a valid CSV format. This means:
   * The first line contains the exact column names: ` + "`%s`" + `, separated by commas.
   * Each subsequent line represents a data record, with the values in the same order as the column names and separated by commas.
   * There must be no extra spaces before or after the commas or the values.
3. **No additional output:** Output ONLY the CSV data and the header row. Any other text, explanations, greetings, or additional information are strictly prohibited.
4. **Handle inconsistencies:** Assume that the input data can be highly inconsistent. Information for a specific column may be missing, formatted differently, or appear in unexpected places. Do your best to identify and map the relevant information. If information for a required column is completely missing in a record, leave the corresponding field in the CSV output empty.
5. **Direct output:** Start the output directly with the header row, followed by the data rows.

%s**Inconsistent Input Data:**

%s

%s`

	SamplePromptSection = `**Example of desired output format:**

%s

`
)
