package config

const (
	defaultConfigPath        = "~/.config/surveymerge/config.toml"
	projectConfigName        = "surveymerge.toml"
	defaultBaseDir           = "."
	defaultOutputFile        = "Merged.sav"
	defaultCleanedMemberFile = "Cleaned_Member.sav"
	defaultCleanedSpouseFile = "Cleaned_Spouse.sav"
	defaultStateDir          = "~/.local/share/surveymerge"
	historyFileName          = "history.db"
	lockFileName             = "surveymerge.lock"
	defaultCheckStart        = 30
	defaultCheckEnd          = 48
	defaultStorageStart      = 29
	defaultRenameFrom        = "Duration__in_seconds_"
	defaultRenameTo          = "ResponseDurationSeconds"
	defaultProduct           = "surveymerge"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

var defaultDeleteColumns = []string{
	"Status", "RecipientLastName", "RecipientFirstName",
	"RecipientEmail", "DistributionChannel", "UserLanguage", "ExternalReference",
}

var defaultColumnOrder = []string{
	"ResponseId", "IPAddress", "LocationLatitude", "LocationLongitude",
	"ResponseDurationSeconds", "Progress", "Finished", "StartDate", "EndDate",
	"RecordedDate", "DueDate", "SurveyType", "RespondentType", "ClubIndex",
	"ClubName", "ClubCategory", "ClubTotalMemberCount", "ClubTotalSpouseCount",
	"ClubResponseMember", "ClubResponseSpouse", "TotalClubResponse",
	"ClubMainInitiationFee", "ClubMainAnnualFee", "ClubType", "ClubAddressRegion",
	"ClubAddressCity", "ClubAddressState", "ClubAddressZip",
}

// Default returns a Config populated with repository defaults. Paths that
// have an environment fallback are defaulted during normalization instead.
func Default() Config {
	return Config{
		Paths: Paths{
			CleanedMemberFile: defaultCleanedMemberFile,
			CleanedSpouseFile: defaultCleanedSpouseFile,
		},
		Cleaning: Cleaning{
			CheckStart:    defaultCheckStart,
			CheckEnd:      defaultCheckEnd,
			DeleteColumns: append([]string(nil), defaultDeleteColumns...),
			RenameFrom:    defaultRenameFrom,
			RenameTo:      defaultRenameTo,
			StorageStart:  defaultStorageStart,
			ColumnOrder:   append([]string(nil), defaultColumnOrder...),
		},
		Output: Output{
			Product:      defaultProduct,
			WriteCleaned: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
