package redis

import "fmt"

// Key prefix for all app data
const keyPrefix = "mathmaster"

// Key generation functions for each entity type

// accountKey returns the Redis key for an account, indexed by email
func accountKey(email string) string {
	return fmt.Sprintf("%s:account:%s", keyPrefix, email)
}

// sessionKey returns the Redis key for an issued session token
func sessionKey(token string) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, token)
}

// profileKey returns the Redis key for a user profile
func profileKey(id string) string {
	return fmt.Sprintf("%s:profile:%s", keyPrefix, id)
}

// themesKey returns the Redis key for the theme catalogue
func themesKey() string {
	return fmt.Sprintf("%s:themes", keyPrefix)
}

// badgesKey returns the Redis key for the badge catalogue
func badgesKey() string {
	return fmt.Sprintf("%s:badges", keyPrefix)
}

// exercisesKey returns the Redis key for the exercise bank
func exercisesKey() string {
	return fmt.Sprintf("%s:exercises", keyPrefix)
}

// progressKey returns the Redis key for one (user, theme) progress record
func progressKey(userID, themeID string) string {
	return fmt.Sprintf("%s:progress:%s:%s", keyPrefix, userID, themeID)
}

// progressIndexKey returns the Redis key for the SET of themes a user has
// progress in
func progressIndexKey(userID string) string {
	return fmt.Sprintf("%s:idx:progress:%s", keyPrefix, userID)
}

// activitiesKey returns the Redis key for a user's activity log LIST,
// newest first
func activitiesKey(userID string) string {
	return fmt.Sprintf("%s:activities:%s", keyPrefix, userID)
}

// awardsKey returns the Redis key for a user's badge award LIST, newest first
func awardsKey(userID string) string {
	return fmt.Sprintf("%s:awards:%s", keyPrefix, userID)
}

// awardSetKey returns the Redis key for the SET enforcing one award per
// (user, badge)
func awardSetKey(userID string) string {
	return fmt.Sprintf("%s:idx:award_set:%s", keyPrefix, userID)
}

// exerciseResultsKey returns the Redis key for a user's exercise result LIST
func exerciseResultsKey(userID string) string {
	return fmt.Sprintf("%s:exercise_results:%s", keyPrefix, userID)
}

// diagnosticResultsKey returns the Redis key for a user's diagnostic result
// LIST
func diagnosticResultsKey(userID string) string {
	return fmt.Sprintf("%s:diagnostic_results:%s", keyPrefix, userID)
}

// feedChannel returns the pub/sub channel carrying change events for one
// table and user
func feedChannel(table, userID string) string {
	return fmt.Sprintf("%s:feed:%s:%s", keyPrefix, table, userID)
}
