package model

type Category struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Ctime int64  `json:"ctime"`
}

// FallbackCategory is assigned when classification fails or the post has
// too little text to determine a theme.
const FallbackCategory = "기타"

// ClassifyErrorPrefix marks a category reason written by the failure
// fallback. Rows carrying it are picked up again by the pending
// classifier so a model outage does not pin posts to the fallback
// category forever.
const ClassifyErrorPrefix = "카테고리 분류 중 오류 발생"
