package scope

import "gorm.io/gorm"

func OrderByPositionAsc(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// OrderByRetrievalRank sorts scored embedding rows the way retrieval ranks them.
func OrderByRetrievalRank(db *gorm.DB) *gorm.DB {
	return db.Order("score DESC").Order("note_updated_at DESC").Order("note_id ASC")
}
