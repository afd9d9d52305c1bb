package results

import (
	"encoding/xml"
	"strconv"

	"github.com/animus-labs/tfbridge/internal/domain"
)

// OverallResultProperty restates the overall result for consumers that only
// read properties.
const OverallResultProperty = "baseosci.overall-result"

type xmlResults struct {
	XMLName       xml.Name      `xml:"testsuites"`
	OverallResult string        `xml:"overall-result,attr"`
	Properties    []xmlProperty `xml:"properties>property"`
	Suites        []xmlSuite    `xml:"testsuite"`
}

type xmlProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type xmlSuite struct {
	Name   string   `xml:"name,attr"`
	Result string   `xml:"result,attr"`
	Tests  string   `xml:"tests,attr"`
	Stage  string   `xml:"stage,attr"`
	Logs   []xmlLog `xml:"logs>log"`
}

type xmlLog struct {
	Href string `xml:"href,attr"`
	Name string `xml:"name,attr"`
}

// Render serializes a summary as the Test API results.xml document.
func Render(summary domain.ResultsSummary) ([]byte, error) {
	doc := xmlResults{
		OverallResult: string(summary.Overall),
		Properties: []xmlProperty{
			{Name: OverallResultProperty, Value: string(summary.Overall)},
		},
	}
	for _, s := range summary.Suites {
		suite := xmlSuite{
			Name:   s.Name,
			Result: string(s.Result),
			Tests:  strconv.Itoa(s.Tests),
			Stage:  s.Stage,
		}
		for _, l := range s.Logs {
			suite.Logs = append(suite.Logs, xmlLog{Href: l.Href, Name: l.Name})
		}
		doc.Suites = append(doc.Suites, suite)
	}

	out, err := xml.MarshalIndent(doc, "", " ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}
