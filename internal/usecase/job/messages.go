package job

import "fmt"

const sessionExpiredMessage = `🚨 네이버 카페 세션이 만료되었습니다.

로컬 PC에서 다시 로그인한 뒤 세션 파일을
서버의 crawl.naver_cafe.session_path 위치로 복사하세요.`

func crawlCompleteMessage(lodCount, cafeCount, bookmarkCount int) string {
	return fmt.Sprintf("✅ 크롤링 완료\nLOD 공홈: %d건\n네이버 카페: %d건\n신규 책갈피: %d건 생성",
		lodCount, cafeCount, bookmarkCount)
}
