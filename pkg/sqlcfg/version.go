package sqlcfg

// Version is the release version of the sqlcfg module.
const Version = "0.1.0"
