package utils

import (
	"math/rand"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/capacity"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/domain"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "勇", "霞", "飞", "玲",
	"超", "华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌",
	"庆", "建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var digits = "0123456789"

// GenerateEmailFromChineseName 用姓名拼音的前缀加几位数字作为邮箱的本地部分
func GenerateEmailFromChineseName(chineseName string, emailDomainName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	local := ""

	for _, py := range pinyinArray {
		length := rand.Intn(len(py)) + 1
		local += py[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		local += string(digits[rand.Intn(len(digits))])
	}

	return local + "@" + emailDomainName
}

func GenerateRandomAvailability() domain.Availability {
	return domain.Availabilities[rand.Intn(len(domain.Availabilities))]
}

type RandomSubmission struct {
	Name       string
	Email      string
	Selections []Selection
}

// GenerateRandomSubmission 只从还有空位的班次中随机选两个，剩余可选班次不足两个时返回 false
func GenerateRandomSubmission(catalog *domain.Catalog, emailDomainName string, currentSignups []*domain.Signup) (*RandomSubmission, bool) {
	open := make([]domain.ShiftSlot, 0)
	for _, slot := range catalog.List() {
		if !capacity.IsFull(slot, currentSignups) {
			open = append(open, slot)
		}
	}
	if len(open) < domain.RequiredSelections {
		return nil, false
	}

	// 用 Fisher-Yates 洗牌算法打乱可选班次
	for i := len(open) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		open[i], open[j] = open[j], open[i]
	}

	fullName := GenerateRandomChineseName()
	submission := &RandomSubmission{
		Name:       fullName,
		Email:      GenerateEmailFromChineseName(fullName, emailDomainName),
		Selections: make([]Selection, domain.RequiredSelections),
	}
	for i := range submission.Selections {
		submission.Selections[i] = Selection{
			SlotID:       open[i].ID,
			Availability: string(GenerateRandomAvailability()),
		}
	}

	return submission, true
}
