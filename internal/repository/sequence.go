package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// maxSequence 取 column 中以 prefix 开头的编号的最大数字后缀，无记录返回 0
// 后缀位数可能超过补零宽度，先按长度再按字典序排
func maxSequence(ctx context.Context, db *gorm.DB, table interface{}, column, prefix string) (int64, error) {
	var values []string
	err := db.WithContext(ctx).Model(table).
		Where(column+" LIKE ?", prefix+"%").
		Order("LENGTH(" + column + ") DESC, " + column + " DESC").
		Limit(1).
		Pluck(column, &values).Error
	if err != nil || len(values) == 0 {
		return 0, err
	}
	seq, err := strconv.ParseInt(strings.TrimPrefix(values[0], prefix), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("编号 %q 后缀不是数字: %w", values[0], err)
	}
	return seq, nil
}
