package source

import "blogposter/internal/post"

// SampleSheet is the sheet name of the starter spreadsheet.
const SampleSheet = "블로그데이터"

var sampleTitles = []string{
	"직장인 월급 200만원으로 1년에 1000만원 모으는 비법",
	"30대가 꼭 알아야 할 투자 상식 10가지",
	"집에서 할 수 있는 부업 추천 BEST 7",
	"다이어트 성공률 90% 올리는 간단한 방법",
	"연봉 협상에서 절대 실패하지 않는 말하기 기술",
	"20대에 꼭 해야 할 자기계발 리스트",
	"스마트폰으로 월 50만원 벌기 실제 후기",
	"면접에서 100% 합격하는 자기소개 공식",
	"주식 초보자도 수익내는 종목 선택법",
	"혼자 사는 사람을 위한 절약 생활 꿀팁",
}

var sampleBodies = []string{
	"직장인이라면 누구나 고민하는 돈 모으기! 월급 200만원으로 1년에 1000만원을 모은 경험을 공유합니다. 가계부 작성법부터 투자 방법까지 상세히 알려드려요.",
	"30대가 꼭 알아야 할 투자 상식 10가지를 정리했습니다. 주식, 부동산, 펀드까지 모두 다뤄요.",
	"집에서도 충분히 돈을 벌 수 있어요! 직접 해본 부업 중에서 정말 돈이 되는 것들만 골라서 추천드립니다.",
	"성공률 90%를 자랑하는 다이어트 방법을 공개합니다. 운동 없이도 가능한 식단 조절법과 생활 습관 개선 방법을 알려드려요.",
	"10년차 직장인이 알려주는 연봉 협상 노하우! 실제 대화 예시까지 포함되어 있어요.",
	"30대가 되어서 후회하지 않으려면 지금 시작해야 할 것들이 있어요. 독서, 운동, 인맥 관리 등 20대 필수 자기계발 리스트를 공개합니다.",
	"스마트폰만 있으면 누구나 할 수 있는 부업! 월 50만원을 벌고 있는 후기를 솔직하게 공유합니다.",
	"면접관이 좋아하는 키워드와 구성 방법까지, 합격하는 자기소개 공식을 알려드립니다.",
	"주식 초보자도 수익을 낼 수 있는 종목 선택법을 공개합니다. 차트 보는 법부터 매매 타이밍까지 알려드려요.",
	"1인 가구를 위한 절약 생활 꿀팁을 공유합니다. 식비, 교통비, 통신비까지 생활비를 줄이는 방법을 알려드려요.",
}

// SampleRecords returns a starter set of records with titles and bodies.
func SampleRecords() []post.Record {
	out := make([]post.Record, len(sampleTitles))
	for i := range sampleTitles {
		out[i] = post.Record{Title: sampleTitles[i], Body: sampleBodies[i]}
	}
	return out
}
