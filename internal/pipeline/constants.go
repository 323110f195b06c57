package pipeline

import (
	"time"

	"surveymerge/internal/config"
	"surveymerge/internal/dataset"
)

// spssEpoch is the origin of SPSS date values: seconds since the start of
// the Gregorian calendar.
var spssEpoch = time.Date(1582, time.October, 14, 0, 0, 0, 0, time.UTC)

// SPSSTime converts t to SPSS seconds. Wall-clock fields are kept, so a due
// date of 2025-01-31 reads back as midnight of that day in SPSS.
func SPSSTime(t time.Time) float64 {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return float64(wall.Unix()-spssEpoch.Unix()) + float64(wall.Nanosecond())/1e9
}

type counts struct {
	member int
	spouse int
}

// constantColumns lists the per-club columns appended to the merged table,
// in the order they are added.
func constantColumns(survey config.Survey, responses counts) ([]dataset.NewColumn, error) {
	due := dataset.Missing()
	if at, ok, err := survey.DueTime(); err != nil {
		return nil, err
	} else if ok {
		due = dataset.Number(SPSSTime(at))
	}

	text := func(name, value, format string) dataset.NewColumn {
		return dataset.NewColumn{
			Name:         name,
			Kind:         dataset.KindString,
			Fill:         dataset.Text(value),
			DisplayWidth: dataset.Ptr(15),
			Measure:      dataset.Ptr(dataset.MeasureNominal),
			Format:       dataset.Ptr(dataset.MustParseFormat(format)),
		}
	}
	scale := func(name string, value dataset.Value, format string) dataset.NewColumn {
		return dataset.NewColumn{
			Name:         name,
			Kind:         dataset.KindNumeric,
			Fill:         value,
			DisplayWidth: dataset.Ptr(5),
			Measure:      dataset.Ptr(dataset.MeasureScale),
			Format:       dataset.Ptr(dataset.MustParseFormat(format)),
		}
	}
	count := func(name string, n int) dataset.NewColumn {
		return scale(name, dataset.Number(float64(n)), "F8.0")
	}

	return []dataset.NewColumn{
		text("SurveyType", survey.SurveyType, "A200"),
		text("RespondentType", survey.ResponseType, "A200"),
		text("ClubIndex", survey.ClubIndex, "A200"),
		text("ClubName", survey.ClubName, "A200"),
		text("ClubAddressCity", survey.ClubAddressCity, "A200"),
		text("ClubAddressState", survey.ClubAddressState, "A200"),
		text("ClubAddressZip", survey.ClubAddressZip, "A200"),
		text("ClubCategory", survey.ClubCategory, "A32"),
		scale("DueDate", due, "DATETIME11"),
		count("ClubType", survey.ClubType),
		count("ClubAddressRegion", survey.ClubAddressRegion),
		count("ClubTotalMemberCount", survey.TotalMemberCount),
		count("ClubTotalSpouseCount", survey.TotalSpouseCount),
		count("ClubResponseMember", responses.member),
		count("ClubResponseSpouse", responses.spouse),
		count("TotalClubResponse", responses.member+responses.spouse),
		scale("ClubMainInitiationFee", dataset.Missing(), "DOLLAR12.0"),
		scale("ClubMainAnnualFee", dataset.Missing(), "DOLLAR12.0"),
	}, nil
}
