package selfcheck

import (
	"encoding/xml"
	"fmt"
)

type junitFailure struct {
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

type junitCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
}

type junitSuite struct {
	XMLName   struct{}    `xml:"testsuite"`
	Name      string      `xml:"name,attr"`
	Tests     int         `xml:"tests,attr"`
	Failures  int         `xml:"failures,attr"`
	Timestamp string      `xml:"timestamp,attr,omitempty"`
	Testcases []junitCase `xml:"testcase"`
}

// JUnitXML renders the report as a JUnit testsuite for CI. Each check is a
// testcase classed by its check type; artifacts of a failing snapshot check
// are listed in the failure body.
func (r *Report) JUnitXML() ([]byte, error) {
	suite := junitSuite{
		Name:      r.PlanID,
		Tests:     len(r.Results),
		Timestamp: r.CreatedAt,
	}
	for _, res := range r.Results {
		tc := junitCase{
			Name:      res.Label,
			Classname: res.CheckType,
			Time:      fmt.Sprintf("%.3f", float64(res.DurationMS)/1000),
		}
		if !res.Pass {
			suite.Failures++
			msg := res.Message
			if msg == "" {
				msg = "check failed"
			}
			tc.Failure = &junitFailure{Message: msg}
			for _, a := range res.Artifacts {
				tc.Failure.Body += a + "\n"
			}
		}
		suite.Testcases = append(suite.Testcases, tc)
	}

	data, err := xml.MarshalIndent(suite, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode junit report: %w", err)
	}
	return append([]byte(xml.Header), data...), nil
}
