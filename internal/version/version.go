package version

// AppVersion is the dais release version printed by `dais version`.
var AppVersion = "0.1.0"
